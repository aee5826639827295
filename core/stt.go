package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/vox-core/core/audio"
	"github.com/koscakluka/vox-core/core/events"
	"github.com/koscakluka/vox-core/core/speechtotext"
)

// speechToText wraps the optional transcription client and translates its
// callbacks into session events. Every method is a no-op when no client is
// configured, so callers never branch on configuration.
type speechToText struct {
	client SpeechToText

	emitEvent eventEmitter
}

func newSpeechToText(client SpeechToText) *speechToText {
	return &speechToText{client: client, emitEvent: noopEventEmitter}
}

func (s *speechToText) set(client SpeechToText) {
	if s != nil {
		s.client = client
	}
}

func (s *speechToText) isConfigured() bool {
	return s != nil && s.client != nil
}

// Start opens the transcription stream with the given input encoding and
// keeps it open for the life of the session.
func (s *speechToText) Start(ctx context.Context, encodingInfo audio.EncodingInfo) error {
	if !s.isConfigured() {
		return nil
	}

	err := s.client.Transcribe(ctx,
		speechtotext.WithEncodingInfo(encodingInfo),
		speechtotext.WithSpeechStartedCallback(func() {
			s.emitEvent(events.NewUserSpeechStarted())
		}),
		speechtotext.WithSpeechEndedCallback(func() {
			s.emitEvent(events.NewUserSpeechEnded())
		}),
		speechtotext.WithInterimTranscriptionCallback(s.emitInterim),
		speechtotext.WithPartialTranscriptionCallback(s.emitSegment),
		speechtotext.WithTranscriptionCallback(s.emitFinal),
	)
	if err != nil {
		return fmt.Errorf("failed to start transcription: %w", err)
	}

	return nil
}

func (s *speechToText) SendAudio(audio []byte) error {
	if !s.isConfigured() {
		return nil
	}

	return s.client.SendAudio(audio)
}

func (s *speechToText) Close(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	return closeClient(ctx, s.client, "speech-to-text client")
}

func (s *speechToText) SetEventEmitter(emitEvent eventEmitter) {
	if s == nil {
		return
	}

	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}
	s.emitEvent = emitEvent
}

func (s *speechToText) emitInterim(transcript string) {
	s.emitEvent(events.NewUserTranscriptInterimUpdated(transcript))
}

func (s *speechToText) emitSegment(transcript string) {
	s.emitEvent(events.NewUserTranscriptSegment(transcript))
}

// emitFinal clears the interim draft before publishing the finalized
// utterance so consumers rendering the draft do not show it twice.
func (s *speechToText) emitFinal(transcript string) {
	s.emitEvent(events.NewUserTranscriptInterimUpdated(""))
	s.emitEvent(events.NewUserTranscriptFinal(transcript))
}
