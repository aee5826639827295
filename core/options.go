package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/vox-core/core/audio"
	"github.com/koscakluka/vox-core/core/chat"
	"github.com/koscakluka/vox-core/core/prefs"
	"github.com/koscakluka/vox-core/core/speechtotext"
	"github.com/koscakluka/vox-core/core/tools"
)

type OrchestratorOption func(*Orchestrator)

// ChatBackend is the remote conversation service: it streams replies to user
// turns and executes confirmed side-effecting actions.
type ChatBackend interface {
	Stream(ctx context.Context, request chat.TurnRequest) (chat.EventStream, error)
	ConfirmAction(ctx context.Context, request chat.ConfirmRequest) (*chat.ConfirmReply, error)
}

func WithChatBackend(client ChatBackend) OrchestratorOption {
	return func(o *Orchestrator) { o.backend = client }
}

type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
}

func WithSpeechToTextClient(client SpeechToText) OrchestratorOption {
	return func(o *Orchestrator) { o.speechToText.set(client) }
}

type AudioInput interface {
	audioInputBase
}

// AudioInputControls is implemented by input clients that can start and stop
// capture on demand instead of streaming continuously.
type AudioInputControls interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput.Set(client) }
}

type AudioOutput interface {
	audioOutputBase
}

func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutput.Set(client) }
}

// ChunkDecoder converts a reply audio chunk from its wire format to the raw
// PCM the playback sink expects. Returning an error skips the chunk.
type ChunkDecoder func(audio []byte, format string) ([]byte, error)

func WithChunkDecoder(decoder ChunkDecoder) OrchestratorOption {
	return func(o *Orchestrator) {
		if decoder != nil {
			o.chunkDecoder = decoder
		}
	}
}

func WithSessionID(sessionID string) OrchestratorOption {
	return func(o *Orchestrator) {
		if sessionID != "" {
			o.sessionID = sessionID
		}
	}
}

func WithToolCatalog(catalog *tools.Catalog) OrchestratorOption {
	return func(o *Orchestrator) { o.catalog = catalog }
}

func WithPreferences(store prefs.Store) OrchestratorOption {
	return func(o *Orchestrator) { o.preferences = store }
}

// WithMaxUtteranceDuration bounds how long a single push-to-talk capture can
// run before it is released automatically.
func WithMaxUtteranceDuration(duration time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if duration > 0 {
			o.maxUtteranceDuration = duration
		}
	}
}

type OrchestrateOptions struct {
	onTranscription        func(transcript string)
	onPartialTranscription func(transcript string)
	onInterimTranscription func(transcript string)
	onSpeakingStateChanged func(isSpeaking bool)
	onInputAudio           func(audio []byte)
	onInputAudioLevel      func(level float64)
	onReply                func(delta string)
	onReplyEnd             func(fullText string)
	onToolCall             func(name string)
	onToolResult           func(name, result string)
	onPlaybackStarted      func()
	onPlaybackEnded        func()
	onStateChanged         func(state AssistantState)
	onActionPending        func(actionID, toolName, summary string)
	onActionConfirmed      func(actionID, messageID string)
	onActionCancelled      func(actionID string)
	onActionFailed         func(actionID, message string)
	onTurnCompleted        func(turnID, assistantText string)
	onTurnFailed           func(turnID, assistantText, message string)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithTranscriptionCallback registers a callback for final transcriptions
// produced by the configured speech-to-text client.
func WithTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTranscription = callback
	}
}

// WithPartialTranscriptionCallback registers a callback for finalized
// transcription segments produced by the configured speech-to-text client.
func WithPartialTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPartialTranscription = callback
	}
}

// WithInterimTranscriptionCallback registers a callback for interim
// transcriptions. Each call replaces the previous value; an empty string
// clears the draft once the utterance finalizes.
func WithInterimTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInterimTranscription = callback
	}
}

// WithSpeakingStateChangedCallback registers a callback for voice-activity
// updates produced by the configured speech-to-text client.
func WithSpeakingStateChangedCallback(callback func(isSpeaking bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSpeakingStateChanged = callback
	}
}

// WithInputAudioCallback registers a callback for raw input audio chunks.
//
// The provided slice is passed through as-is (no defensive copy). The
// callback runs inline on the input-audio path and should not block.
func WithInputAudioCallback(callback func(audio []byte)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInputAudio = callback
	}
}

// WithInputAudioLevelCallback registers a callback for smoothed input
// loudness samples in [0, 1], suitable for driving a meter.
func WithInputAudioLevelCallback(callback func(level float64)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInputAudioLevel = callback
	}
}

func WithReplyCallback(callback func(delta string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onReply = callback
	}
}

func WithReplyEndCallback(callback func(fullText string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onReplyEnd = callback
	}
}

func WithToolCallCallback(callback func(name string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onToolCall = callback
	}
}

func WithToolResultCallback(callback func(name, result string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onToolResult = callback
	}
}

func WithPlaybackStartedCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPlaybackStarted = callback
	}
}

// WithPlaybackEndedCallback registers a callback invoked when reply playback
// ends, whether it drained naturally or was flushed by barge-in.
func WithPlaybackEndedCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPlaybackEnded = callback
	}
}

func WithStateChangedCallback(callback func(state AssistantState)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onStateChanged = callback
	}
}

// WithActionPendingCallback registers a callback invoked when a prepared
// side-effecting action starts awaiting confirmation. Full action details
// are available through [Orchestrator.PendingAction].
func WithActionPendingCallback(callback func(actionID, toolName, summary string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onActionPending = callback
	}
}

func WithActionConfirmedCallback(callback func(actionID, messageID string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onActionConfirmed = callback
	}
}

func WithActionCancelledCallback(callback func(actionID string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onActionCancelled = callback
	}
}

func WithActionFailedCallback(callback func(actionID, message string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onActionFailed = callback
	}
}

func WithTurnCompletedCallback(callback func(turnID, assistantText string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTurnCompleted = callback
	}
}

func WithTurnFailedCallback(callback func(turnID, assistantText, message string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTurnFailed = callback
	}
}

type audioOutputBase interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}

type audioInputBase interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}
