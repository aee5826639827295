package events

const (
	// KindTurnStarted identifies turn submission.
	KindTurnStarted Kind = "turn_state.started"
	// KindTurnCompleted identifies successful turn completion.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnFailed identifies turn failure.
	KindTurnFailed Kind = "turn_state.failed"
)

// TurnStarted marks submission of a user turn.
type TurnStarted struct {
	Base
	TurnID   string
	UserText string
}

// NewTurnStarted creates a turn started event.
func NewTurnStarted(turnID, userText string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), TurnID: turnID, UserText: userText}
}

// TurnCompleted marks successful completion of a turn.
type TurnCompleted struct {
	Base
	TurnID        string
	AssistantText string
}

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(turnID, assistantText string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), TurnID: turnID, AssistantText: assistantText}
}

// TurnFailed marks turn failure. AssistantText holds whatever text streamed
// before the failure.
type TurnFailed struct {
	Base
	TurnID        string
	AssistantText string
	Error         string
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(turnID, assistantText, err string) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), TurnID: turnID, AssistantText: assistantText, Error: err}
}
