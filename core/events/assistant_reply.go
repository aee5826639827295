package events

const (
	// KindAssistantReplyStarted identifies the opening of a reply stream.
	KindAssistantReplyStarted Kind = "assistant_reply.started"
	// KindAssistantReplySegment identifies streamed assistant reply text.
	KindAssistantReplySegment Kind = "assistant_reply.segment"
	// KindAssistantReplyAudioFrame identifies synthesized reply speech audio.
	KindAssistantReplyAudioFrame Kind = "assistant_reply.audio_frame"
	// KindAssistantReplyFinal identifies reply stream completion.
	KindAssistantReplyFinal Kind = "assistant_reply.final"
	// KindAssistantReplyFailed identifies reply stream failure.
	KindAssistantReplyFailed Kind = "assistant_reply.failed"
)

// AssistantReplyStarted marks the opening of a reply stream for a turn.
type AssistantReplyStarted struct {
	Base
	TurnID string
}

// NewAssistantReplyStarted creates an assistant reply started event.
func NewAssistantReplyStarted(turnID string) AssistantReplyStarted {
	return AssistantReplyStarted{Base: NewBase(KindAssistantReplyStarted), TurnID: turnID}
}

// AssistantReplySegment carries a streamed assistant reply text segment.
type AssistantReplySegment struct {
	Base
	TurnID  string
	Segment string
}

// NewAssistantReplySegment creates an assistant reply segment event.
func NewAssistantReplySegment(turnID, segment string) AssistantReplySegment {
	return AssistantReplySegment{Base: NewBase(KindAssistantReplySegment), TurnID: turnID, Segment: segment}
}

// AssistantReplyAudioFrame carries a synthesized reply speech audio chunk.
type AssistantReplyAudioFrame struct {
	Base
	TurnID string
	Audio  []byte
	Format string
}

// NewAssistantReplyAudioFrame creates an assistant reply audio frame event.
func NewAssistantReplyAudioFrame(turnID string, audio []byte, format string) AssistantReplyAudioFrame {
	return AssistantReplyAudioFrame{Base: NewBase(KindAssistantReplyAudioFrame), TurnID: turnID, Audio: audio, Format: format}
}

// AssistantReplyFinal marks reply stream completion. FullText may be empty
// when the backend only streamed deltas.
type AssistantReplyFinal struct {
	Base
	TurnID   string
	FullText string
}

// NewAssistantReplyFinal creates an assistant reply final event.
func NewAssistantReplyFinal(turnID, fullText string) AssistantReplyFinal {
	return AssistantReplyFinal{Base: NewBase(KindAssistantReplyFinal), TurnID: turnID, FullText: fullText}
}

// AssistantReplyFailed marks reply stream failure. Text streamed before the
// failure remains part of the turn.
type AssistantReplyFailed struct {
	Base
	TurnID string
	Error  string
}

// NewAssistantReplyFailed creates an assistant reply failed event.
func NewAssistantReplyFailed(turnID, err string) AssistantReplyFailed {
	return AssistantReplyFailed{Base: NewBase(KindAssistantReplyFailed), TurnID: turnID, Error: err}
}
