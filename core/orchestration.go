package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/vox-core/core/chat"
	"github.com/koscakluka/vox-core/core/events"
	"github.com/koscakluka/vox-core/core/prefs"
	"github.com/koscakluka/vox-core/core/tools"
	"github.com/koscakluka/vox-core/internal/utils"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrTurnInFlight    = errors.New("a turn is already in flight")
	ErrActionPending   = errors.New("a pending action awaits confirmation")
	ErrNoPendingAction = errors.New("no action is pending")
)

const (
	defaultMaxUtteranceDuration = 3 * time.Minute
	levelEmitInterval           = 50 * time.Millisecond
)

// PassthroughChunkDecoder forwards reply audio unchanged. It fits backends
// that synthesize speech in the same raw PCM encoding the sink plays.
func PassthroughChunkDecoder(audio []byte, format string) ([]byte, error) {
	return audio, nil
}

// Orchestrator runs one conversational session: it routes microphone audio
// to speech-to-text, submits finished utterances as turns, consumes the
// backend reply stream, and plays synthesized speech while watching for
// barge-in. All session state is owned by a single dispatch goroutine fed
// through the runtime queue.
type Orchestrator struct {
	sessionID string

	backend ChatBackend

	// speechToText is the STT facade used to handle optional client wiring.
	speechToText speechToText
	// audioInput is the input facade used to normalize capture behavior.
	audioInput audioInput
	// audioOutput is the playback facade used to normalize sink behavior.
	audioOutput audioOutput

	catalog     *tools.Catalog
	preferences prefs.Store

	chunkDecoder         ChunkDecoder
	maxUtteranceDuration time.Duration

	runtime   *sessionRuntime
	closeOnce sync.Once

	baseContext        context.Context
	emitEvent          eventEmitter
	orchestrateOptions OrchestrateOptions

	turnInFlight atomic.Bool

	meter *levelMeter
	// lastLevelEmit is only touched from the capture callback goroutine.
	lastLevelEmit time.Time

	mu              sync.Mutex
	turns           []Turn
	pendingAction   *PendingAction
	state           AssistantState
	isAwaitingReply bool
	isPlaying       bool
	playback        *playbackQueue
	captureTimer    *time.Timer
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		sessionID:            uuid.NewString(),
		runtime:              newSessionRuntime(),
		baseContext:          context.Background(),
		chunkDecoder:         PassthroughChunkDecoder,
		maxUtteranceDuration: defaultMaxUtteranceDuration,
		emitEvent:            noopEventEmitter,
		meter:                newLevelMeter(),
		state:                StateIdle,
	}

	o.speechToText = *newSpeechToText(nil)
	o.audioInput = *newAudioInput(nil, o.onInputAudio, func(err error) {
		o.runtime.enqueue(events.NewCaptureFailed(err.Error()))
	})
	o.audioOutput = *newAudioOutput(nil)

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *Orchestrator) SessionID() string { return o.sessionID }

// Orchestrate starts the session and wires the configured devices.
//
// ctx is used as a base context for turns and device work; cancelling it
// closes the session.
//
// Contract: call Orchestrate at most once per orchestrator instance.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	if o.runtime.isClosed() {
		logger.WarnContext(ctx, "session already closed, skipping Orchestrate")
		return
	}

	o.orchestrateOptions = OrchestrateOptions{}
	for _, opt := range opts {
		opt(&o.orchestrateOptions)
	}

	o.baseContext = ctx
	o.emitEvent = newCallbackEventEmitter(o.orchestrateOptions)
	o.speechToText.SetEventEmitter(func(event events.Event) { o.runtime.enqueue(event) })

	if started := o.runtime.start(o.handleEvent); started {
		go func() {
			<-ctx.Done()
			o.Close()
		}()
	}

	if err := o.speechToText.Start(ctx, o.audioInput.EncodingInfo()); err != nil {
		recordedErr := fmt.Errorf("failed to initialize speech-to-text: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
	}
	o.audioInput.Start(ctx)
}

func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		playback := o.playback
		if o.captureTimer != nil {
			o.captureTimer.Stop()
			o.captureTimer = nil
		}
		o.mu.Unlock()
		if playback != nil {
			playback.Stop()
		}

		if err := o.audioInput.Close(); err != nil {
			recordedErr := fmt.Errorf("failed to close audio input: %w", err)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		if err := o.speechToText.Close(o.baseContext); err != nil {
			recordedErr := fmt.Errorf("failed to close speech-to-text client: %w", err)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		if err := o.audioOutput.Close(o.baseContext); err != nil {
			recordedErr := fmt.Errorf("failed to close audio output: %w", err)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		o.runtime.end()
		o.runtime.awaitCompletion()
	})
}

// SendTurn submits one user turn and starts streaming the reply. It rejects
// the turn while another is in flight or while an action awaits
// confirmation.
func (o *Orchestrator) SendTurn(ctx context.Context, text string) (turnID string, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("turn text is empty")
	}
	if o.runtime.isClosed() {
		return "", errors.New("session is closed")
	}
	if o.backend == nil {
		return "", errors.New("no chat backend configured")
	}
	if o.PendingAction() != nil {
		return "", ErrActionPending
	}
	if !o.turnInFlight.CompareAndSwap(false, true) {
		return "", ErrTurnInFlight
	}

	turnID = uuid.NewString()
	o.runtime.enqueue(events.NewTurnStarted(turnID, text))
	go o.streamReply(ctx, turnID, text)
	return turnID, nil
}

// State returns the current session-level assistant state.
func (o *Orchestrator) State() AssistantState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// PendingAction returns a copy of the action awaiting confirmation, or nil.
func (o *Orchestrator) PendingAction() *PendingAction {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pendingAction == nil {
		return nil
	}
	action := *o.pendingAction
	return &action
}

// ConfirmPendingAction executes the pending action through the backend. On
// failure the action stays pending so the user can retry or cancel.
func (o *Orchestrator) ConfirmPendingAction(ctx context.Context) error {
	pending := o.PendingAction()
	if pending == nil {
		return ErrNoPendingAction
	}

	ctx, span := tracer.Start(ctx, "confirm pending action")
	defer span.End()

	reply, err := o.backend.ConfirmAction(ctx, chat.ConfirmRequest{ActionID: pending.ID})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.runtime.enqueue(events.NewActionFailed(pending.ID, err.Error()))
		return err
	}

	o.runtime.enqueue(events.NewActionConfirmed(pending.ID, reply.MessageID))
	return nil
}

// CancelPendingAction discards the pending action locally. The backend is
// never contacted; an unconfirmed draft simply stays a draft.
func (o *Orchestrator) CancelPendingAction() error {
	pending := o.PendingAction()
	if pending == nil {
		return ErrNoPendingAction
	}

	o.runtime.enqueue(events.NewActionCancelled(pending.ID))
	return nil
}

// Interrupt stops the current reply playback, dropping any speech that has
// not played yet. It is a no-op when nothing is playing.
func (o *Orchestrator) Interrupt() {
	o.mu.Lock()
	queue := o.playback
	playing := o.isPlaying
	o.mu.Unlock()
	if playing && queue != nil {
		queue.Flush()
		o.audioOutput.Clear()
	}
}

// StartListening begins a push-to-talk capture. Capture is released
// automatically once the utterance finalizes or the maximum utterance
// duration elapses.
func (o *Orchestrator) StartListening() error {
	if !o.audioInput.IsConfigured() {
		return errors.New("no audio input configured")
	}

	o.mu.Lock()
	if o.captureTimer != nil {
		o.captureTimer.Stop()
	}
	o.captureTimer = time.AfterFunc(o.maxUtteranceDuration, func() {
		if err := o.StopListening(); err != nil {
			logger.Warn("failed to release capture after maximum utterance duration", "error", err)
		}
	})
	o.mu.Unlock()

	if err := o.audioInput.RequestCapture(o.baseContext); err != nil {
		return err
	}
	o.runtime.enqueue(events.NewCaptureStarted())
	return nil
}

func (o *Orchestrator) StopListening() error {
	o.mu.Lock()
	if o.captureTimer != nil {
		o.captureTimer.Stop()
		o.captureTimer = nil
	}
	o.mu.Unlock()

	if err := o.audioInput.ReleaseCapture(o.baseContext); err != nil {
		return err
	}
	o.runtime.enqueue(events.NewCaptureStopped())
	return nil
}

func (o *Orchestrator) IsListening() bool { return o.audioInput.IsCapturing() }
func (o *Orchestrator) IsOpenMic() bool   { return o.audioInput.IsOpenMic() }

func (o *Orchestrator) EnableOpenMic(ctx context.Context) error {
	return o.audioInput.EnableOpenMic(ctx)
}

func (o *Orchestrator) DisableOpenMic(ctx context.Context) error {
	return o.audioInput.DisableOpenMic(ctx)
}

// SendAudio forwards externally captured audio to speech-to-text, bypassing
// the configured input device.
func (o *Orchestrator) SendAudio(audio []byte) error { return o.speechToText.SendAudio(audio) }

func (o *Orchestrator) onInputAudio(frame []byte) {
	if o.orchestrateOptions.onInputAudio != nil {
		o.orchestrateOptions.onInputAudio(frame)
	}

	// While a reply is pending or playing the microphone hears the assistant,
	// not the user: metering pauses and nothing reaches transcription, so the
	// assistant cannot barge in on itself.
	o.mu.Lock()
	muted := o.isAwaitingReply || o.isPlaying
	o.mu.Unlock()
	if muted {
		return
	}

	level := o.meter.Sample(frame)
	if time.Since(o.lastLevelEmit) >= levelEmitInterval {
		o.lastLevelEmit = time.Now()
		o.runtime.enqueue(events.NewUserAudioLevel(level))
	}

	if err := o.speechToText.SendAudio(frame); err != nil {
		logger.Warn("failed to forward audio to speech-to-text", "error", err)
	}
}

func (o *Orchestrator) streamReply(ctx context.Context, turnID, text string) {
	ctx, span := tracer.Start(ctx, "stream assistant reply")
	defer span.End()

	stream, err := o.backend.Stream(ctx, o.buildTurnRequest(text))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.runtime.enqueue(events.NewAssistantReplyFailed(turnID, err.Error()))
		return
	}
	defer stream.Close()

	o.runtime.enqueue(events.NewAssistantReplyStarted(turnID))

	terminal := false
	stream.Events(func(event chat.StreamEvent) bool {
		switch typedEvent := event.(type) {
		case chat.TextDelta:
			o.runtime.enqueue(events.NewAssistantReplySegment(turnID, typedEvent.Text))
		case chat.ToolCall:
			o.runtime.enqueue(events.NewToolCallStarted(turnID, typedEvent.Name, typedEvent.Arguments))
		case chat.ToolResult:
			o.runtime.enqueue(events.NewToolCallCompleted(turnID, typedEvent.Name, typedEvent.Result))
		case chat.AudioChunk:
			o.runtime.enqueue(events.NewAssistantReplyAudioFrame(turnID, typedEvent.Audio, typedEvent.Format))
		case chat.Done:
			terminal = true
			o.runtime.enqueue(events.NewAssistantReplyFinal(turnID, typedEvent.FullText))
			return false
		case chat.StreamError:
			terminal = true
			o.runtime.enqueue(events.NewAssistantReplyFailed(turnID, typedEvent.Message))
			return false
		}
		return true
	})

	if terminal {
		return
	}

	if err := stream.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.runtime.enqueue(events.NewAssistantReplyFailed(turnID, err.Error()))
		return
	}

	// Stream ended without a terminal event; treat whatever streamed as the
	// full reply.
	o.runtime.enqueue(events.NewAssistantReplyFinal(turnID, ""))
}

func (o *Orchestrator) buildTurnRequest(text string) chat.TurnRequest {
	request := chat.TurnRequest{SessionID: o.sessionID, Message: text}

	if o.preferences != nil {
		if timezone, ok := o.preferences.Get(prefs.KeyTimezone); ok {
			request.TimezoneName = timezone
		}
		if latitude, ok := prefs.Float(o.preferences, prefs.KeyLatitude); ok {
			if longitude, ok := prefs.Float(o.preferences, prefs.KeyLongitude); ok {
				request.Latitude = utils.Ptr(latitude)
				request.Longitude = utils.Ptr(longitude)
			}
		}
		request.AllowedToolTags = prefs.List(o.preferences, prefs.KeyEnabledToolTags)
	}

	if o.catalog != nil && len(request.AllowedToolTags) > 0 {
		request.AllowedToolNames = o.catalog.AllowedNames(request.AllowedToolTags...)
	}

	return request
}

// handleEvent runs on the dispatch goroutine and is the only place session
// state changes. Callbacks are invoked after state settles so observers see
// a consistent view.
func (o *Orchestrator) handleEvent(event events.Event) {
	var followup events.Event

	switch typedEvent := event.(type) {
	case events.TurnStarted:
		o.mu.Lock()
		o.turns = append(o.turns, Turn{ID: typedEvent.TurnID, UserText: typedEvent.UserText})
		o.isAwaitingReply = true
		queue := o.playback
		playing := o.isPlaying
		o.mu.Unlock()
		// A new turn makes whatever the assistant was still saying stale.
		if playing && queue != nil {
			queue.Flush()
			o.audioOutput.Clear()
		}

	case events.AssistantReplyStarted:
		queue := newPlaybackQueue(o.audioOutput.EncodingInfo())
		o.mu.Lock()
		if o.playback != nil {
			o.playback.Stop()
		}
		o.playback = queue
		o.mu.Unlock()
		go o.playReply(typedEvent.TurnID, queue)

	case events.AssistantReplySegment:
		o.mu.Lock()
		if typedEvent.Segment != "" {
			o.isAwaitingReply = false
		}
		if turn := o.openTurnLocked(typedEvent.TurnID); turn != nil {
			turn.AssistantText = joinSegment(turn.AssistantText, typedEvent.Segment)
		}
		o.mu.Unlock()

	case events.ToolCallCompleted:
		followup = o.handleToolResult(typedEvent)

	case events.AssistantReplyAudioFrame:
		chunk, err := o.chunkDecoder(typedEvent.Audio, typedEvent.Format)
		if err != nil {
			logger.Warn("dropping undecodable reply audio chunk",
				"format", typedEvent.Format, "error", err)
			break
		}
		o.mu.Lock()
		queue := o.playback
		o.mu.Unlock()
		if queue != nil {
			queue.Add(chunk)
		}

	case events.AssistantReplyFinal:
		followup = o.finalizeTurn(typedEvent.TurnID, typedEvent.FullText, "")

	case events.AssistantReplyFailed:
		followup = o.finalizeTurn(typedEvent.TurnID, "", typedEvent.Error)

	case events.UserSpeechStarted:
		o.mu.Lock()
		queue := o.playback
		playing := o.isPlaying
		o.mu.Unlock()
		if playing && queue != nil {
			// Barge-in: the user talks over the assistant, so queued speech
			// is stale and gets dropped.
			queue.Flush()
			o.audioOutput.Clear()
		}

	case events.UserTranscriptFinal:
		o.handleFinalTranscript(typedEvent.Transcript)

	case events.AssistantPlaybackStarted:
		o.mu.Lock()
		o.isPlaying = true
		o.mu.Unlock()

	case events.AssistantPlaybackDrained:
		o.mu.Lock()
		o.isPlaying = false
		pending := o.pendingAction
		o.mu.Unlock()
		// Voice confirmation waits for the spoken prompt to finish so the
		// microphone does not pick up the assistant's own speech.
		if pending != nil {
			if err := o.audioInput.RequestCapture(o.baseContext); err != nil {
				logger.Warn("failed to open capture for voice confirmation", "error", err)
			}
		}

	case events.AssistantPlaybackFlushed:
		o.mu.Lock()
		o.isPlaying = false
		o.mu.Unlock()

	case events.ActionConfirmed:
		o.clearPendingAction(typedEvent.ActionID)

	case events.ActionCancelled:
		o.clearPendingAction(typedEvent.ActionID)

	case events.CaptureFailed:
		logger.Warn("audio capture failed", "error", typedEvent.Error)
	}

	o.emitEvent(event)
	if followup != nil {
		o.emitEvent(followup)
	}
	o.refreshState()
}

func (o *Orchestrator) handleToolResult(event events.ToolCallCompleted) events.Event {
	action, ok := parsePendingAction(event.Name, event.Result)
	if !ok {
		return nil
	}

	o.mu.Lock()
	if o.pendingAction != nil {
		// The first prepared action wins; later ones in the same reply are
		// ignored.
		o.mu.Unlock()
		return nil
	}
	o.pendingAction = action
	o.mu.Unlock()

	return events.NewActionPending(action.ID, action.ToolName, action.Summary())
}

func (o *Orchestrator) finalizeTurn(turnID, fullText, errMessage string) events.Event {
	o.mu.Lock()
	o.isAwaitingReply = false
	var finalized *Turn
	if turn := o.openTurnLocked(turnID); turn != nil && !turn.Completed {
		if errMessage == "" && fullText != "" {
			turn.AssistantText = fullText
		}
		turn.Completed = true
		turn.Error = errMessage
		finalizedCopy := *turn
		finalized = &finalizedCopy
	}
	queue := o.playback
	o.mu.Unlock()

	if queue != nil {
		queue.AllLoaded()
	}
	o.turnInFlight.Store(false)

	if finalized == nil {
		return nil
	}
	if errMessage != "" {
		return events.NewTurnFailed(finalized.ID, finalized.AssistantText, errMessage)
	}
	return events.NewTurnCompleted(finalized.ID, finalized.AssistantText)
}

func (o *Orchestrator) handleFinalTranscript(transcript string) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}

	o.mu.Lock()
	pending := o.pendingAction
	o.mu.Unlock()

	if pending != nil {
		switch classifyConfirmationIntent(transcript) {
		case intentConfirm:
			go func() {
				if err := o.ConfirmPendingAction(o.baseContext); err != nil {
					logger.Warn("voice confirmation failed", "error", err)
				}
			}()
		case intentCancel:
			go func() {
				if err := o.CancelPendingAction(); err != nil {
					logger.Warn("voice cancellation failed", "error", err)
				}
			}()
		default:
			// Ambiguous utterance; the action stays pending and the user is
			// asked again.
		}
		return
	}

	if !o.audioInput.IsOpenMic() {
		go func() {
			if err := o.StopListening(); err != nil {
				logger.Warn("failed to release capture after utterance", "error", err)
			}
		}()
	}

	go func() {
		if _, err := o.SendTurn(o.baseContext, transcript); err != nil {
			logger.Warn("failed to submit transcribed turn", "error", err)
		}
	}()
}

func (o *Orchestrator) clearPendingAction(actionID string) {
	o.mu.Lock()
	if o.pendingAction != nil && o.pendingAction.ID == actionID {
		o.pendingAction = nil
	}
	o.mu.Unlock()

	if !o.audioInput.IsOpenMic() {
		if err := o.audioInput.ReleaseCapture(o.baseContext); err != nil {
			logger.Warn("failed to release capture after action resolution", "error", err)
		}
	}
}

func (o *Orchestrator) playReply(turnID string, queue *playbackQueue) {
	if err := o.audioOutput.StartPlayback(o.baseContext); err != nil {
		logger.Warn("failed to start playback device", "error", err)
	}

	started := false
	for chunk := range queue.Chunks {
		if !started {
			started = true
			o.runtime.enqueue(events.NewAssistantPlaybackStarted(turnID))
		}
		if err := o.audioOutput.SendAudio(chunk); err != nil {
			logger.Warn("failed to send reply audio to output", "error", err)
		}
	}

	if err := o.audioOutput.StopPlayback(); err != nil {
		logger.Warn("failed to stop playback device", "error", err)
	}

	switch {
	case queue.Flushed():
		o.runtime.enqueue(events.NewAssistantPlaybackFlushed(turnID))
	case started:
		o.runtime.enqueue(events.NewAssistantPlaybackDrained(turnID))
	}
}

// openTurnLocked finds the turn for turnID; callers hold o.mu.
func (o *Orchestrator) openTurnLocked(turnID string) *Turn {
	for i := len(o.turns) - 1; i >= 0; i-- {
		if o.turns[i].ID == turnID {
			return &o.turns[i]
		}
	}
	return nil
}

func (o *Orchestrator) refreshState() {
	o.mu.Lock()
	newState := StateIdle
	switch {
	case o.pendingAction != nil:
		newState = StateAwaitingConfirmation
	case o.isAwaitingReply:
		newState = StateThinking
	case o.isPlaying:
		newState = StateSpeaking
	case o.audioInput.IsCapturing():
		newState = StateListening
	}
	changed := newState != o.state
	o.state = newState
	o.mu.Unlock()

	if changed && o.orchestrateOptions.onStateChanged != nil {
		o.orchestrateOptions.onStateChanged(newState)
	}
}
