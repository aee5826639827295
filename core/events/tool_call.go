package events

const (
	// KindToolCallStarted identifies backend tool execution start.
	KindToolCallStarted Kind = "tool_call.started"
	// KindToolCallCompleted identifies backend tool execution completion.
	KindToolCallCompleted Kind = "tool_call.completed"
)

// ToolCallStarted marks start of backend tool execution.
type ToolCallStarted struct {
	Base
	TurnID    string
	Name      string
	Arguments map[string]any
}

// NewToolCallStarted creates a tool call started event.
func NewToolCallStarted(turnID, name string, arguments map[string]any) ToolCallStarted {
	return ToolCallStarted{Base: NewBase(KindToolCallStarted), TurnID: turnID, Name: name, Arguments: arguments}
}

// ToolCallCompleted marks completed backend tool execution. Result is the
// JSON payload exactly as reported by the backend.
type ToolCallCompleted struct {
	Base
	TurnID string
	Name   string
	Result string
}

// NewToolCallCompleted creates a tool call completed event.
func NewToolCallCompleted(turnID, name, result string) ToolCallCompleted {
	return ToolCallCompleted{Base: NewBase(KindToolCallCompleted), TurnID: turnID, Name: name, Result: result}
}
