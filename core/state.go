package orchestration

// AssistantState is the session-level state shown to the user. Exactly one
// state is active at a time; when several conditions hold at once the most
// user-relevant one wins (confirmation, then thinking, then speaking, then
// listening).
type AssistantState string

const (
	// StateIdle means nothing is in flight.
	StateIdle AssistantState = "idle"
	// StateListening means the microphone is live and capturing.
	StateListening AssistantState = "listening"
	// StateThinking means a turn was submitted and no reply text arrived yet.
	StateThinking AssistantState = "thinking"
	// StateSpeaking means reply audio is playing.
	StateSpeaking AssistantState = "speaking"
	// StateAwaitingConfirmation means a prepared action blocks new turns
	// until the user decides.
	StateAwaitingConfirmation AssistantState = "awaiting_confirmation"
)
