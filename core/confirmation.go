package orchestration

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PendingAction is a prepared side-effecting backend action awaiting an
// explicit user decision. Until it is confirmed or cancelled, no new turns
// are accepted.
type PendingAction struct {
	ID       string
	ToolName string
	To       string
	Subject  string
	Body     string
}

func (a PendingAction) Summary() string {
	return fmt.Sprintf("draft to %s: %s", a.To, a.Subject)
}

// confirmableTools names the backend tools whose results describe a prepared
// draft rather than an executed action.
var confirmableTools = map[string]bool{
	"create_gmail_draft": true,
	"create_draft":       true,
}

// parsePendingAction decodes a tool result into a pending action. Only
// results of draft-preparing tools with a complete successful payload
// qualify; anything else is treated as informational. Field aliases cover
// both payload generations the backend has shipped.
func parsePendingAction(toolName, result string) (*PendingAction, bool) {
	if !confirmableTools[toolName] {
		return nil, false
	}

	var payload struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		DraftID string `json:"draftId"`
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
		Preview string `json:"preview"`
	}
	if err := json.Unmarshal([]byte(result), &payload); err != nil {
		return nil, false
	}

	id := payload.ID
	if id == "" {
		id = payload.DraftID
	}
	body := payload.Body
	if body == "" {
		body = payload.Preview
	}

	if payload.Status != "success" || id == "" || payload.To == "" || payload.Subject == "" || body == "" {
		return nil, false
	}

	return &PendingAction{
		ID:       id,
		ToolName: toolName,
		To:       payload.To,
		Subject:  payload.Subject,
		Body:     body,
	}, true
}

type confirmationIntent int

const (
	intentUnknown confirmationIntent = iota
	intentConfirm
	intentCancel
)

var confirmationWords = map[string]confirmationIntent{
	"yes":     intentConfirm,
	"yeah":    intentConfirm,
	"yep":     intentConfirm,
	"yup":     intentConfirm,
	"sure":    intentConfirm,
	"confirm": intentConfirm,
	"send":    intentConfirm,
	"ok":      intentConfirm,
	"okay":    intentConfirm,
	"correct": intentConfirm,

	"no":       intentCancel,
	"nope":     intentCancel,
	"don't":    intentCancel,
	"dont":     intentCancel,
	"cancel":   intentCancel,
	"stop":     intentCancel,
	"discard":  intentCancel,
	"wait":     intentCancel,
	"negative": intentCancel,
}

// classifyConfirmationIntent maps a spoken utterance to a confirmation
// decision. Cancellation words win over confirmation words so "no, don't
// send it" cancels despite containing "send". Anything ambiguous stays
// unknown and the user is asked again.
func classifyConfirmationIntent(transcript string) confirmationIntent {
	intent := intentUnknown
	for _, word := range strings.Fields(strings.ToLower(transcript)) {
		word = strings.Trim(word, ".,!?;:\"'")
		switch confirmationWords[word] {
		case intentCancel:
			return intentCancel
		case intentConfirm:
			intent = intentConfirm
		}
	}
	return intent
}
