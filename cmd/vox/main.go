package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/koscakluka/vox-core/core"
	"github.com/koscakluka/vox-core/core/audio/miniaudio"
	"github.com/koscakluka/vox-core/core/chat"
	"github.com/koscakluka/vox-core/core/prefs"
	"github.com/koscakluka/vox-core/core/speechtotext/deepgram"
	"github.com/koscakluka/vox-core/core/tools"
)

func main() {
	backendURL := os.Getenv("VOX_BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:5000"
	}

	client := chat.NewClient(backendURL,
		chat.WithUserID(os.Getenv("VOX_USER_ID")),
		chat.WithVoice(os.Getenv("VOX_VOICE")),
	)

	store := prefs.NewMemoryStore()
	store.Set(prefs.KeyTimezone, time.Local.String())
	prefs.SetList(store, prefs.KeyEnabledToolTags, []string{"email", "calendar", "weather"})

	catalog := tools.NewCatalog(
		tools.New("create_gmail_draft", "prepare an email draft for confirmation", nil, "email", "google"),
		tools.New("list_calendar_events", "list upcoming calendar events", nil, "calendar", "google"),
		tools.New("get_weather", "look up the current weather", nil, "weather"),
	)

	opts := []orchestration.OrchestratorOption{
		orchestration.WithChatBackend(client),
		orchestration.WithPreferences(store),
		orchestration.WithToolCatalog(catalog),
	}

	if os.Getenv("DEEPGRAM_API_KEY") != "" {
		transcriber, err := deepgram.NewTranscriptionClient()
		if err != nil {
			log.Printf("speech-to-text unavailable: %v", err)
		} else {
			opts = append(opts, orchestration.WithSpeechToTextClient(transcriber))
		}
	}

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		log.Printf("audio devices unavailable, running text-only: %v", err)
	} else {
		opts = append(opts,
			orchestration.WithAudioInput(audioClient),
			orchestration.WithAudioOutput(audioClient),
		)
	}

	orchestrator := orchestration.NewOrchestrator(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthCtx, healthCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := client.Health(healthCtx); err != nil {
		log.Printf("backend %s unreachable: %v", backendURL, err)
	}
	healthCancel()

	program := tea.NewProgram(newModel(orchestrator), tea.WithAltScreen())

	orchestrator.Orchestrate(ctx,
		orchestration.WithStateChangedCallback(func(state orchestration.AssistantState) {
			program.Send(stateMsg{state: state})
		}),
		orchestration.WithInputAudioLevelCallback(func(level float64) {
			program.Send(levelMsg{level: level})
		}),
		orchestration.WithInterimTranscriptionCallback(func(transcript string) {
			program.Send(interimMsg{transcript: transcript})
		}),
		orchestration.WithTranscriptionCallback(func(transcript string) {
			program.Send(userTextMsg{text: transcript})
		}),
		orchestration.WithReplyCallback(func(delta string) {
			program.Send(replyDeltaMsg{delta: delta})
		}),
		orchestration.WithToolCallCallback(func(name string) {
			program.Send(statusMsg{status: "running " + name + "..."})
		}),
		orchestration.WithTurnCompletedCallback(func(turnID, assistantText string) {
			program.Send(turnDoneMsg{assistantText: assistantText})
		}),
		orchestration.WithTurnFailedCallback(func(turnID, assistantText, message string) {
			program.Send(turnDoneMsg{assistantText: assistantText, errMessage: message})
		}),
		orchestration.WithActionPendingCallback(func(actionID, toolName, summary string) {
			program.Send(actionPendingMsg{})
		}),
		orchestration.WithActionConfirmedCallback(func(actionID, messageID string) {
			program.Send(actionResolvedMsg{status: "sent (message " + messageID + ")"})
		}),
		orchestration.WithActionCancelledCallback(func(actionID string) {
			program.Send(actionResolvedMsg{status: "cancelled, draft kept"})
		}),
		orchestration.WithActionFailedCallback(func(actionID, message string) {
			program.Send(statusMsg{status: "send failed: " + message})
		}),
		orchestration.WithPlaybackEndedCallback(func() {
			program.Send(statusMsg{status: ""})
		}),
	)
	defer orchestrator.Close()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "vox: %v\n", err)
		os.Exit(1)
	}
}
