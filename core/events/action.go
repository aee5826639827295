package events

const (
	// KindActionPending identifies a side-effecting action awaiting confirmation.
	KindActionPending Kind = "action.pending"
	// KindActionConfirmed identifies confirmed and executed actions.
	KindActionConfirmed Kind = "action.confirmed"
	// KindActionCancelled identifies cancelled actions.
	KindActionCancelled Kind = "action.cancelled"
	// KindActionFailed identifies actions whose execution failed after confirmation.
	KindActionFailed Kind = "action.failed"
)

// ActionPending marks a prepared side-effecting action awaiting an explicit
// user decision.
type ActionPending struct {
	Base
	ActionID string
	ToolName string
	Summary  string
}

// NewActionPending creates an action pending event.
func NewActionPending(actionID, toolName, summary string) ActionPending {
	return ActionPending{Base: NewBase(KindActionPending), ActionID: actionID, ToolName: toolName, Summary: summary}
}

// ActionConfirmed marks a confirmed action whose execution succeeded.
type ActionConfirmed struct {
	Base
	ActionID  string
	MessageID string
}

// NewActionConfirmed creates an action confirmed event.
func NewActionConfirmed(actionID, messageID string) ActionConfirmed {
	return ActionConfirmed{Base: NewBase(KindActionConfirmed), ActionID: actionID, MessageID: messageID}
}

// ActionCancelled marks a discarded action. The backend is never contacted.
type ActionCancelled struct {
	Base
	ActionID string
}

// NewActionCancelled creates an action cancelled event.
func NewActionCancelled(actionID string) ActionCancelled {
	return ActionCancelled{Base: NewBase(KindActionCancelled), ActionID: actionID}
}

// ActionFailed marks a confirmed action whose execution failed. The action
// stays pending so the user can retry or cancel.
type ActionFailed struct {
	Base
	ActionID string
	Error    string
}

// NewActionFailed creates an action failed event.
func NewActionFailed(actionID, err string) ActionFailed {
	return ActionFailed{Base: NewBase(KindActionFailed), ActionID: actionID, Error: err}
}
