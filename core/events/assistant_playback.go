package events

const (
	// KindAssistantPlaybackStarted identifies playback start for the current reply.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackDrained identifies the playback completion milestone.
	KindAssistantPlaybackDrained Kind = "assistant_playback.drained"
	// KindAssistantPlaybackFlushed identifies playback interruption with dropped audio.
	KindAssistantPlaybackFlushed Kind = "assistant_playback.flushed"
)

// AssistantPlaybackStarted marks the start of assistant playback.
type AssistantPlaybackStarted struct {
	Base
	TurnID string
}

// NewAssistantPlaybackStarted creates an assistant playback started event.
func NewAssistantPlaybackStarted(turnID string) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: NewBase(KindAssistantPlaybackStarted), TurnID: turnID}
}

// AssistantPlaybackDrained marks that every queued chunk finished playing.
type AssistantPlaybackDrained struct {
	Base
	TurnID string
}

// NewAssistantPlaybackDrained creates an assistant playback drained event.
func NewAssistantPlaybackDrained(turnID string) AssistantPlaybackDrained {
	return AssistantPlaybackDrained{Base: NewBase(KindAssistantPlaybackDrained), TurnID: turnID}
}

// AssistantPlaybackFlushed marks that playback was interrupted and queued
// audio was dropped.
type AssistantPlaybackFlushed struct {
	Base
	TurnID string
}

// NewAssistantPlaybackFlushed creates an assistant playback flushed event.
func NewAssistantPlaybackFlushed(turnID string) AssistantPlaybackFlushed {
	return AssistantPlaybackFlushed{Base: NewBase(KindAssistantPlaybackFlushed), TurnID: turnID}
}
