package chat

// StreamEvent is one decoded server-sent event from the streaming chat
// endpoint. Consumers dispatch on the concrete type; events are handed over
// exactly once and never retained by the stream.
type StreamEvent interface {
	streamEvent()
}

// TextDelta carries one streamed fragment of the assistant reply.
type TextDelta struct {
	Text string
}

// ToolCall reports that the backend started executing a tool. Informational,
// arguments are passed through undecoded beyond JSON.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// ToolResult carries a completed tool execution. Result is the JSON-encoded
// payload exactly as sent by the backend; whoever recognizes the tool name
// decodes it.
type ToolResult struct {
	Name   string
	Result string
}

// AudioChunk carries one synthesized speech segment, already base64-decoded.
type AudioChunk struct {
	Audio  []byte
	Format string
}

// Done ends the stream. FullText is the authoritative final reply text and
// may be empty when the backend only streamed deltas.
type Done struct {
	FullText string
}

// StreamError is a backend-reported failure; it ends the stream.
type StreamError struct {
	Message string
}

func (TextDelta) streamEvent()   {}
func (ToolCall) streamEvent()    {}
func (ToolResult) streamEvent()  {}
func (AudioChunk) streamEvent()  {}
func (Done) streamEvent()        {}
func (StreamError) streamEvent() {}
