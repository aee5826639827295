package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/vox-core/core/audio"
	"github.com/koscakluka/vox-core/core/speechtotext"
)

const listenEndpoint = "wss://api.deepgram.com/v1/listen"

// Transcribe opens the live-transcription websocket and starts forwarding
// responses to the configured callbacks. It returns once the connection is
// established; transcription runs until Close or the context ends.
func (s *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := &speechtotext.TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	wantsUtteranceEnd := options.TranscriptionCallback != nil || options.SpeechEndedCallback != nil
	conn, err := s.dial(dialOptions{
		sampleRate:     encoding.SampleRate,
		encoding:       encoding.Format.Name(),
		vadEvents:      options.SpeechStartedCallback != nil || wantsUtteranceEnd,
		utteranceEnd:   wantsUtteranceEnd,
		interimResults: wantsUtteranceEnd || options.InterimTranscriptionCallback != nil,
	})
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.accumulatedTranscript = ""
	s.unendedSegment = false
	s.connMu.Unlock()

	go s.readLoop(ctx, conn, *options)

	return nil
}

type dialOptions struct {
	sampleRate int
	encoding   string

	vadEvents      bool
	utteranceEnd   bool
	interimResults bool
}

func (s *TranscriptionClient) dial(options dialOptions) (*websocket.Conn, error) {
	listenURL, _ := url.Parse(listenEndpoint)

	query := listenURL.Query()
	query.Set("model", "nova-3")
	query.Set("language", "en-US")
	query.Set("encoding", options.encoding)
	query.Set("sample_rate", strconv.Itoa(options.sampleRate))
	query.Set("channels", "1")
	query.Set("smart_format", "true")
	query.Set("endpointing", "300")
	if options.vadEvents {
		query.Set("vad_events", "true")
	}
	if options.utteranceEnd {
		query.Set("utterance_end_ms", "1000")
	}
	if options.interimResults {
		query.Set("interim_results", "true")
	}
	listenURL.RawQuery = query.Encode()

	header := http.Header{"Authorization": {"Token " + s.apiKey}}
	conn, _, err := websocket.DefaultDialer.Dial(listenURL.String(), header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to deepgram: %w", err)
	}

	return conn, nil
}

func (s *TranscriptionClient) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("transcription channel not open")
	}

	s.lastMsgTs = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram: %w", err)
	}
	return nil
}

// sendSilence is SendAudio without the last-message timestamp update, so
// generated silence never counts as real input.
func (s *TranscriptionClient) sendSilence(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return nil
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram: %w", err)
	}
	return nil
}

func (s *TranscriptionClient) sendKeepAlive() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return
	}
	message := struct {
		Type string `json:"type"`
	}{Type: "KeepAlive"}
	if err := s.conn.WriteJSON(message); err != nil {
		log.Println("Failed to send deepgram keep-alive", "error", err)
	}
}

func (s *TranscriptionClient) readLoop(ctx context.Context, conn *websocket.Conn, options speechtotext.TranscriptionOptions) {
	warmCtx, cancelWarm := context.WithCancel(ctx)
	defer cancelWarm()
	go s.keepWarm(warmCtx, options.EncodingInfo)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if err.Error() != "websocket: close 1000 (normal)" {
				log.Println("Failed to read deepgram websocket message", "error", err)
			}

			s.connMu.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.connMu.Unlock()
			conn.Close()
			return
		}

		if msgType == websocket.BinaryMessage {
			continue
		}
		go s.handleMessage(msg, options)
	}
}

func (s *TranscriptionClient) handleMessage(msg []byte, options speechtotext.TranscriptionOptions) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		log.Println("Failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(head.Type) {
	case api.TypeMessageResponse:
		var response api.MessageResponse
		if err := json.Unmarshal(msg, &response); err != nil {
			log.Println("Failed to unmarshal deepgram transcript", "error", err)
			return
		}
		s.handleTranscript(response, options)

	case api.TypeUtteranceEndResponse:
		// Deepgram only reports UtteranceEnd when a transcript segment is
		// still open; flush whatever accumulated.
		if s.unendedSegment {
			s.flushUtterance(options)
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true
		if options.SpeechStartedCallback != nil {
			options.SpeechStartedCallback()
		}
	}
}

func (s *TranscriptionClient) handleTranscript(response api.MessageResponse, options speechtotext.TranscriptionOptions) {
	var transcript string
	if len(response.Channel.Alternatives) > 0 {
		transcript = strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
	}

	if !response.IsFinal {
		if transcript != "" && options.InterimTranscriptionCallback != nil {
			options.InterimTranscriptionCallback(strings.TrimSpace(s.accumulatedTranscript + " " + transcript))
		}
		return
	}

	if transcript != "" {
		if options.TranscriptionCallback != nil {
			s.accumulatedTranscript += " " + transcript
		}
		if options.PartialTranscriptionCallback != nil {
			options.PartialTranscriptionCallback(transcript)
		}
	}
	if response.SpeechFinal {
		s.flushUtterance(options)
	}
}

func (s *TranscriptionClient) flushUtterance(options speechtotext.TranscriptionOptions) {
	s.unendedSegment = false
	if options.TranscriptionCallback != nil {
		utterance := strings.TrimSpace(s.accumulatedTranscript)
		s.accumulatedTranscript = ""
		if utterance != "" {
			options.TranscriptionCallback(utterance)
		}
	}
	if options.SpeechEndedCallback != nil {
		options.SpeechEndedCallback()
	}
}

// keepWarm keeps the transcription channel alive while no real audio flows,
// e.g. while capture is released during assistant playback. It first streams
// silence frames so endpointing keeps working, then falls back to KeepAlive
// messages once the silence has gone on long enough that transcribing it is
// pointless.
func (s *TranscriptionClient) keepWarm(ctx context.Context, encoding audio.EncodingInfo) {
	const (
		tick            = 50 * time.Millisecond
		silenceAfter    = 50 * time.Millisecond
		keepAliveAfter  = time.Second
		keepAliveEvery  = 5 * time.Second
		silenceChunkDur = 50 // milliseconds
	)

	chunk := make([]byte, encoding.SampleRate*encoding.Format.ByteSize()*silenceChunkDur/1000)
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var silenceSince time.Time
	var lastKeepAlive time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if time.Since(s.lastMsgTs) < silenceAfter {
			// Real audio is flowing again.
			silenceSince = time.Time{}
			continue
		}

		if silenceSince.IsZero() {
			silenceSince = time.Now()
			lastKeepAlive = time.Time{}
			continue
		}

		if time.Since(silenceSince) < keepAliveAfter {
			if err := s.sendSilence(chunk); err != nil {
				log.Println("Failed to send silence", "error", err)
			}
			continue
		}

		if lastKeepAlive.IsZero() || time.Since(lastKeepAlive) >= keepAliveEvery {
			lastKeepAlive = time.Now()
			s.sendKeepAlive()
		}
	}
}
