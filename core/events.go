package orchestration

import "github.com/koscakluka/vox-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.UserAudioLevel:
			if opts.onInputAudioLevel != nil {
				opts.onInputAudioLevel(typedEvent.Level)
			}
		case events.UserSpeechStarted:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.UserSpeechEnded:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.UserTranscriptInterimUpdated:
			if opts.onInterimTranscription != nil {
				opts.onInterimTranscription(typedEvent.Transcript)
			}
		case events.UserTranscriptSegment:
			if opts.onPartialTranscription != nil {
				opts.onPartialTranscription(typedEvent.Segment)
			}
		case events.UserTranscriptFinal:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.AssistantReplySegment:
			if opts.onReply != nil {
				opts.onReply(typedEvent.Segment)
			}
		case events.AssistantReplyFinal:
			if opts.onReplyEnd != nil {
				opts.onReplyEnd(typedEvent.FullText)
			}
		case events.ToolCallStarted:
			if opts.onToolCall != nil {
				opts.onToolCall(typedEvent.Name)
			}
		case events.ToolCallCompleted:
			if opts.onToolResult != nil {
				opts.onToolResult(typedEvent.Name, typedEvent.Result)
			}
		case events.AssistantPlaybackStarted:
			if opts.onPlaybackStarted != nil {
				opts.onPlaybackStarted()
			}
		case events.AssistantPlaybackDrained:
			if opts.onPlaybackEnded != nil {
				opts.onPlaybackEnded()
			}
		case events.AssistantPlaybackFlushed:
			if opts.onPlaybackEnded != nil {
				opts.onPlaybackEnded()
			}
		case events.ActionPending:
			if opts.onActionPending != nil {
				opts.onActionPending(typedEvent.ActionID, typedEvent.ToolName, typedEvent.Summary)
			}
		case events.ActionConfirmed:
			if opts.onActionConfirmed != nil {
				opts.onActionConfirmed(typedEvent.ActionID, typedEvent.MessageID)
			}
		case events.ActionCancelled:
			if opts.onActionCancelled != nil {
				opts.onActionCancelled(typedEvent.ActionID)
			}
		case events.ActionFailed:
			if opts.onActionFailed != nil {
				opts.onActionFailed(typedEvent.ActionID, typedEvent.Error)
			}
		case events.TurnCompleted:
			if opts.onTurnCompleted != nil {
				opts.onTurnCompleted(typedEvent.TurnID, typedEvent.AssistantText)
			}
		case events.TurnFailed:
			if opts.onTurnFailed != nil {
				opts.onTurnFailed(typedEvent.TurnID, typedEvent.AssistantText, typedEvent.Error)
			}
		}
	}
}
