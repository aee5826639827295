package orchestration

import "github.com/jinzhu/copier"

// Turn is one user/assistant exchange in the session transcript. Text
// streamed before a failure is preserved in AssistantText alongside Error.
type Turn struct {
	ID            string
	UserText      string
	AssistantText string
	Error         string
	Completed     bool
}

// Conversation returns a point-in-time deep copy of the session transcript,
// oldest turn first. The in-flight turn is included with its text so far.
func (o *Orchestrator) Conversation() []Turn {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := []Turn{}
	if err := copier.CopyWithOption(&snapshot, &o.turns, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("failed to snapshot conversation", "error", err)
		return nil
	}
	return snapshot
}
