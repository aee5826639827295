package orchestration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/vox-core/core/audio"
	"github.com/koscakluka/vox-core/core/chat"
	"github.com/koscakluka/vox-core/core/prefs"
	"github.com/koscakluka/vox-core/core/speechtotext"
	"github.com/koscakluka/vox-core/core/tools"
)

type scriptedStream struct {
	events []chat.StreamEvent
	err    error
	// release, when set, gates the terminal event so tests can observe the
	// in-flight state.
	release chan struct{}
}

func (s *scriptedStream) Events(yield func(chat.StreamEvent) bool) {
	for i, event := range s.events {
		if s.release != nil && i == len(s.events)-1 {
			<-s.release
		}
		if !yield(event) {
			return
		}
	}
}

func (s *scriptedStream) Err() error   { return s.err }
func (s *scriptedStream) Close() error { return nil }

type scriptedBackend struct {
	mu           sync.Mutex
	streams      []*scriptedStream
	requests     []chat.TurnRequest
	confirmed    []chat.ConfirmRequest
	confirmReply *chat.ConfirmReply
	confirmErr   error
}

func (b *scriptedBackend) Stream(ctx context.Context, request chat.TurnRequest) (chat.EventStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests = append(b.requests, request)
	if len(b.streams) == 0 {
		return nil, errors.New("no scripted stream left")
	}
	stream := b.streams[0]
	b.streams = b.streams[1:]
	return stream, nil
}

func (b *scriptedBackend) ConfirmAction(ctx context.Context, request chat.ConfirmRequest) (*chat.ConfirmReply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.confirmed = append(b.confirmed, request)
	if b.confirmErr != nil {
		return nil, b.confirmErr
	}
	if b.confirmReply != nil {
		return b.confirmReply, nil
	}
	return &chat.ConfirmReply{Status: "success", MessageID: "m1"}, nil
}

func (b *scriptedBackend) confirmedActions() []chat.ConfirmRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]chat.ConfirmRequest{}, b.confirmed...)
}

func (b *scriptedBackend) turnRequests() []chat.TurnRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]chat.TurnRequest{}, b.requests...)
}

func awaitString(t *testing.T, ch <-chan string, what string) string {
	t.Helper()
	select {
	case value := <-ch:
		return value
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}

func TestSendTurnReassemblesStreamedReply(t *testing.T) {
	backend := &scriptedBackend{streams: []*scriptedStream{{
		events: []chat.StreamEvent{
			chat.TextDelta{Text: "Hi "},
			chat.TextDelta{Text: "there"},
			chat.Done{},
		},
	}}}

	orchestrator := NewOrchestrator(WithChatBackend(backend))
	defer orchestrator.Close()

	completed := make(chan string, 1)
	orchestrator.Orchestrate(t.Context(),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "hello"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}

	if got := awaitString(t, completed, "turn completion"); got != "Hi there" {
		t.Fatalf("expected %q, got %q", "Hi there", got)
	}

	turns := orchestrator.Conversation()
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].UserText != "hello" || turns[0].AssistantText != "Hi there" || !turns[0].Completed {
		t.Fatalf("unexpected turn %#v", turns[0])
	}
}

func TestSendTurnSeparatesSentenceDeltas(t *testing.T) {
	backend := &scriptedBackend{streams: []*scriptedStream{{
		events: []chat.StreamEvent{
			chat.TextDelta{Text: "Hours."},
			chat.TextDelta{Text: "The meeting is at 5."},
			chat.Done{},
		},
	}}}

	orchestrator := NewOrchestrator(WithChatBackend(backend))
	defer orchestrator.Close()

	completed := make(chan string, 1)
	orchestrator.Orchestrate(t.Context(),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "when do we meet"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}

	if got := awaitString(t, completed, "turn completion"); got != "Hours. The meeting is at 5." {
		t.Fatalf("expected sentence separation, got %q", got)
	}
}

func TestDoneFullTextReplacesAccumulatedDeltas(t *testing.T) {
	backend := &scriptedBackend{streams: []*scriptedStream{{
		events: []chat.StreamEvent{
			chat.TextDelta{Text: "Hi"},
			chat.Done{FullText: "Hi there, friend."},
		},
	}}}

	orchestrator := NewOrchestrator(WithChatBackend(backend))
	defer orchestrator.Close()

	completed := make(chan string, 1)
	orchestrator.Orchestrate(t.Context(),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "hello"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}

	if got := awaitString(t, completed, "turn completion"); got != "Hi there, friend." {
		t.Fatalf("expected authoritative full text, got %q", got)
	}
}

func TestStreamFailurePreservesPartialText(t *testing.T) {
	backend := &scriptedBackend{streams: []*scriptedStream{
		{events: []chat.StreamEvent{
			chat.TextDelta{Text: "The tem"},
			chat.StreamError{Message: "model overloaded"},
		}},
		{events: []chat.StreamEvent{
			chat.TextDelta{Text: "Recovered."},
			chat.Done{},
		}},
	}}

	orchestrator := NewOrchestrator(WithChatBackend(backend))
	defer orchestrator.Close()

	failed := make(chan string, 1)
	completed := make(chan string, 1)
	orchestrator.Orchestrate(t.Context(),
		WithTurnFailedCallback(func(turnID, assistantText, message string) { failed <- assistantText + "|" + message }),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "weather?"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}
	if got := awaitString(t, failed, "turn failure"); got != "The tem|model overloaded" {
		t.Fatalf("expected partial text and error, got %q", got)
	}

	turns := orchestrator.Conversation()
	if len(turns) != 1 || turns[0].Error != "model overloaded" || turns[0].AssistantText != "The tem" {
		t.Fatalf("unexpected failed turn %#v", turns)
	}

	// The failed turn must not wedge the session.
	if _, err := orchestrator.SendTurn(t.Context(), "again?"); err != nil {
		t.Fatalf("expected a new turn after failure, got: %v", err)
	}
	if got := awaitString(t, completed, "recovery turn"); got != "Recovered." {
		t.Fatalf("unexpected recovery reply %q", got)
	}
}

func TestSendTurnRejectedWhileTurnInFlight(t *testing.T) {
	release := make(chan struct{})
	backend := &scriptedBackend{streams: []*scriptedStream{{
		events: []chat.StreamEvent{
			chat.TextDelta{Text: "thinking"},
			chat.Done{},
		},
		release: release,
	}}}

	orchestrator := NewOrchestrator(WithChatBackend(backend))
	defer orchestrator.Close()

	replies := make(chan string, 1)
	completed := make(chan string, 1)
	orchestrator.Orchestrate(t.Context(),
		WithReplyCallback(func(delta string) {
			select {
			case replies <- delta:
			default:
			}
		}),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "first"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}
	awaitString(t, replies, "first delta")

	if _, err := orchestrator.SendTurn(t.Context(), "second"); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}

	close(release)
	awaitString(t, completed, "turn completion")
}

func TestDraftToolResultBlocksTurnsUntilConfirmed(t *testing.T) {
	backend := &scriptedBackend{streams: []*scriptedStream{
		{events: []chat.StreamEvent{
			chat.TextDelta{Text: "I drafted that email. Should I send it?"},
			chat.ToolResult{
				Name:   "create_gmail_draft",
				Result: `{"status":"success","id":"d1","to":"ana@example.com","subject":"Lunch","body":"Free tomorrow?"}`,
			},
			chat.Done{},
		}},
		{events: []chat.StreamEvent{
			chat.TextDelta{Text: "Done."},
			chat.Done{},
		}},
	}}

	orchestrator := NewOrchestrator(WithChatBackend(backend))
	defer orchestrator.Close()

	pending := make(chan string, 1)
	confirmedCh := make(chan string, 1)
	completed := make(chan string, 2)
	orchestrator.Orchestrate(t.Context(),
		WithActionPendingCallback(func(actionID, toolName, summary string) { pending <- actionID }),
		WithActionConfirmedCallback(func(actionID, messageID string) { confirmedCh <- messageID }),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "email ana about lunch"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}
	if got := awaitString(t, pending, "pending action"); got != "d1" {
		t.Fatalf("expected pending action d1, got %q", got)
	}
	awaitString(t, completed, "turn completion")

	if state := orchestrator.State(); state != StateAwaitingConfirmation {
		t.Fatalf("expected awaiting confirmation, got %q", state)
	}
	action := orchestrator.PendingAction()
	if action == nil || action.To != "ana@example.com" || action.Subject != "Lunch" {
		t.Fatalf("unexpected pending action %#v", action)
	}

	if _, err := orchestrator.SendTurn(t.Context(), "what's the weather"); !errors.Is(err, ErrActionPending) {
		t.Fatalf("expected ErrActionPending, got %v", err)
	}

	if err := orchestrator.ConfirmPendingAction(t.Context()); err != nil {
		t.Fatalf("confirmation failed: %v", err)
	}
	if got := awaitString(t, confirmedCh, "action confirmation"); got != "m1" {
		t.Fatalf("expected message id m1, got %q", got)
	}
	if confirmed := backend.confirmedActions(); len(confirmed) != 1 || confirmed[0].ActionID != "d1" {
		t.Fatalf("unexpected confirm requests %#v", confirmed)
	}

	if orchestrator.PendingAction() != nil {
		t.Fatal("expected pending action to clear after confirmation")
	}
	if _, err := orchestrator.SendTurn(t.Context(), "what's the weather"); err != nil {
		t.Fatalf("expected turns to resume after confirmation, got: %v", err)
	}
	awaitString(t, completed, "follow-up turn")
}

func TestCancelPendingActionSkipsBackend(t *testing.T) {
	backend := &scriptedBackend{streams: []*scriptedStream{{
		events: []chat.StreamEvent{
			chat.ToolResult{
				Name:   "create_gmail_draft",
				Result: `{"status":"success","id":"d2","to":"bob@example.com","subject":"Hi","body":"Hey"}`,
			},
			chat.Done{FullText: "Drafted. Send it?"},
		},
	}}}

	orchestrator := NewOrchestrator(WithChatBackend(backend))
	defer orchestrator.Close()

	cancelled := make(chan string, 1)
	completed := make(chan string, 1)
	orchestrator.Orchestrate(t.Context(),
		WithActionCancelledCallback(func(actionID string) { cancelled <- actionID }),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "draft it"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}
	awaitString(t, completed, "turn completion")

	if err := orchestrator.CancelPendingAction(); err != nil {
		t.Fatalf("cancellation failed: %v", err)
	}
	if got := awaitString(t, cancelled, "action cancellation"); got != "d2" {
		t.Fatalf("expected cancelled action d2, got %q", got)
	}

	if confirmed := backend.confirmedActions(); len(confirmed) != 0 {
		t.Fatalf("cancel must not contact the backend, got %#v", confirmed)
	}
	if orchestrator.PendingAction() != nil {
		t.Fatal("expected pending action to clear after cancellation")
	}
}

func TestFailedConfirmationKeepsActionPending(t *testing.T) {
	backend := &scriptedBackend{
		streams: []*scriptedStream{{
			events: []chat.StreamEvent{
				chat.ToolResult{
					Name:   "create_gmail_draft",
					Result: `{"status":"success","id":"d3","to":"c@example.com","subject":"S","body":"B"}`,
				},
				chat.Done{FullText: "Drafted."},
			},
		}},
		confirmErr: errors.New("draft no longer exists"),
	}

	orchestrator := NewOrchestrator(WithChatBackend(backend))
	defer orchestrator.Close()

	failedCh := make(chan string, 1)
	completed := make(chan string, 1)
	orchestrator.Orchestrate(t.Context(),
		WithActionFailedCallback(func(actionID, message string) { failedCh <- message }),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "draft it"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}
	awaitString(t, completed, "turn completion")

	if err := orchestrator.ConfirmPendingAction(t.Context()); err == nil {
		t.Fatal("expected confirmation to fail")
	}
	awaitString(t, failedCh, "action failure")

	if orchestrator.PendingAction() == nil {
		t.Fatal("expected the action to stay pending after a failed confirmation")
	}
}

func TestTurnRequestCarriesPreferencesAndToolFilter(t *testing.T) {
	backend := &scriptedBackend{streams: []*scriptedStream{{
		events: []chat.StreamEvent{chat.Done{FullText: "ok"}},
	}}}

	store := prefs.NewMemoryStore()
	store.Set(prefs.KeyTimezone, "Europe/Zagreb")
	prefs.SetList(store, prefs.KeyEnabledToolTags, []string{"email"})

	catalog := tools.NewCatalog(
		tools.New("create_gmail_draft", "draft an email", nil, "email"),
		tools.New("get_weather", "weather lookup", nil, "weather"),
	)

	orchestrator := NewOrchestrator(
		WithChatBackend(backend),
		WithSessionID("s-42"),
		WithPreferences(store),
		WithToolCatalog(catalog),
	)
	defer orchestrator.Close()

	completed := make(chan string, 1)
	orchestrator.Orchestrate(t.Context(),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "hi"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}
	awaitString(t, completed, "turn completion")

	requests := backend.turnRequests()
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	request := requests[0]
	if request.SessionID != "s-42" {
		t.Errorf("unexpected session id %q", request.SessionID)
	}
	if request.TimezoneName != "Europe/Zagreb" {
		t.Errorf("unexpected timezone %q", request.TimezoneName)
	}
	if len(request.AllowedToolTags) != 1 || request.AllowedToolTags[0] != "email" {
		t.Errorf("unexpected tool tags %#v", request.AllowedToolTags)
	}
	if len(request.AllowedToolNames) != 1 || request.AllowedToolNames[0] != "create_gmail_draft" {
		t.Errorf("unexpected tool names %#v", request.AllowedToolNames)
	}
}

// recordingTranscriber captures every frame forwarded to speech-to-text.
type recordingTranscriber struct {
	frames chan []byte
}

func (r *recordingTranscriber) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	return nil
}

func (r *recordingTranscriber) SendAudio(audio []byte) error {
	r.frames <- audio
	return nil
}

// heldMic is an input client with on-demand capture controls that stays open
// until explicitly stopped.
type heldMic struct{}

func (heldMic) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }
func (heldMic) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	<-ctx.Done()
	return nil
}
func (heldMic) Close() {}
func (heldMic) StartCapture(ctx context.Context, onAudio func(audio []byte)) error { return nil }
func (heldMic) StopCapture() error                                                 { return nil }

func TestNewTurnFlushesLeftoverPlayback(t *testing.T) {
	// A chunk this large drains for ten seconds, so playback can only end
	// within the timeout below if the second turn flushes it.
	staleAudio := make([]byte, 320000)
	backend := &scriptedBackend{streams: []*scriptedStream{
		{events: []chat.StreamEvent{
			chat.TextDelta{Text: "Long answer."},
			chat.AudioChunk{Audio: staleAudio, Format: "linear16"},
			chat.Done{},
		}},
		{events: []chat.StreamEvent{chat.Done{FullText: "Short answer."}}},
	}}

	orchestrator := NewOrchestrator(WithChatBackend(backend))
	defer orchestrator.Close()

	playbackStarted := make(chan string, 1)
	playbackEnded := make(chan string, 1)
	completed := make(chan string, 2)
	orchestrator.Orchestrate(t.Context(),
		WithPlaybackStartedCallback(func() { playbackStarted <- "started" }),
		WithPlaybackEndedCallback(func() { playbackEnded <- "ended" }),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	if _, err := orchestrator.SendTurn(t.Context(), "first"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}
	awaitString(t, playbackStarted, "playback start")
	awaitString(t, completed, "first turn completion")

	if _, err := orchestrator.SendTurn(t.Context(), "second"); err != nil {
		t.Fatalf("failed to send second turn: %v", err)
	}
	awaitString(t, playbackEnded, "stale playback flush")
	awaitString(t, completed, "second turn completion")
}

func TestInputMutedWhileReplyInFlight(t *testing.T) {
	release := make(chan struct{})
	backend := &scriptedBackend{streams: []*scriptedStream{{
		events:  []chat.StreamEvent{chat.Done{FullText: "ok"}},
		release: release,
	}}}
	transcriber := &recordingTranscriber{frames: make(chan []byte, 4)}

	orchestrator := NewOrchestrator(
		WithChatBackend(backend),
		WithSpeechToTextClient(transcriber),
	)
	defer orchestrator.Close()

	levels := make(chan float64, 4)
	states := make(chan string, 4)
	completed := make(chan string, 1)
	orchestrator.Orchestrate(t.Context(),
		WithInputAudioLevelCallback(func(level float64) {
			select {
			case levels <- level:
			default:
			}
		}),
		WithStateChangedCallback(func(state AssistantState) { states <- string(state) }),
		WithTurnCompletedCallback(func(turnID, assistantText string) { completed <- assistantText }),
	)

	frame := make([]byte, 640)
	for i := range frame {
		frame[i] = byte(i)
	}

	orchestrator.onInputAudio(frame)
	select {
	case <-transcriber.frames:
	case <-time.After(time.Second):
		t.Fatal("expected the idle frame to reach speech-to-text")
	}
	select {
	case <-levels:
	case <-time.After(time.Second):
		t.Fatal("expected a level sample for the idle frame")
	}

	if _, err := orchestrator.SendTurn(t.Context(), "question"); err != nil {
		t.Fatalf("failed to send turn: %v", err)
	}
	if got := awaitString(t, states, "thinking state"); got != string(StateThinking) {
		t.Fatalf("expected thinking state, got %q", got)
	}

	orchestrator.onInputAudio(frame)
	select {
	case <-transcriber.frames:
		t.Fatal("frames must not reach speech-to-text while a reply is in flight")
	case <-levels:
		t.Fatal("level metering must pause while a reply is in flight")
	case <-time.After(150 * time.Millisecond):
	}

	close(release)
	awaitString(t, completed, "turn completion")

	orchestrator.onInputAudio(frame)
	select {
	case <-transcriber.frames:
	case <-time.After(time.Second):
		t.Fatal("expected frames to flow again after the turn finished")
	}
}

func TestHeldCaptureReportsListeningState(t *testing.T) {
	orchestrator := NewOrchestrator(
		WithChatBackend(&scriptedBackend{}),
		WithAudioInput(heldMic{}),
	)
	defer orchestrator.Close()

	states := make(chan string, 4)
	orchestrator.Orchestrate(t.Context(),
		WithStateChangedCallback(func(state AssistantState) { states <- string(state) }),
	)

	if err := orchestrator.StartListening(); err != nil {
		t.Fatalf("failed to start listening: %v", err)
	}
	if got := awaitString(t, states, "listening state"); got != string(StateListening) {
		t.Fatalf("expected listening even while the user is silent, got %q", got)
	}
	if !orchestrator.IsListening() {
		t.Fatal("expected IsListening while capture is held open")
	}

	if err := orchestrator.StopListening(); err != nil {
		t.Fatalf("failed to stop listening: %v", err)
	}
	if got := awaitString(t, states, "idle state"); got != string(StateIdle) {
		t.Fatalf("expected idle after capture release, got %q", got)
	}
}

func TestSendTurnRejectsEmptyText(t *testing.T) {
	orchestrator := NewOrchestrator(WithChatBackend(&scriptedBackend{}))
	defer orchestrator.Close()
	orchestrator.Orchestrate(t.Context())

	if _, err := orchestrator.SendTurn(t.Context(), "   "); err == nil {
		t.Fatal("expected an error for an empty turn")
	}
}
