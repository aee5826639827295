package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStreamSendsTurnAndDecodesReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/stream" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if accept := r.Header.Get("Accept"); accept != "text/event-stream" {
			t.Errorf("expected event-stream accept header, got %q", accept)
		}

		var request TurnRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("failed to decode turn request: %v", err)
		}
		if request.Message != "what's the weather" {
			t.Errorf("unexpected message %q", request.Message)
		}
		if request.UserID != "user-7" {
			t.Errorf("expected default user id to be applied, got %q", request.UserID)
		}
		if request.AccessToken != "tok-123" {
			t.Errorf("expected token provider token, got %q", request.AccessToken)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: text_delta\ndata: {\"text\":\"Sunny\"}\n\n")
		fmt.Fprint(w, "event: done\ndata: {\"full_text\":\"Sunny\"}\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL,
		WithUserID("user-7"),
		WithTokenProvider(func(context.Context) (string, error) { return "tok-123", nil }),
	)

	stream, err := client.Stream(context.Background(), TurnRequest{
		SessionID: "s1",
		Message:   "what's the weather",
	})
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}

	var events []StreamEvent
	stream.Events(func(event StreamEvent) bool {
		events = append(events, event)
		return true
	})
	if err := stream.Err(); err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if done, ok := events[1].(Done); !ok || done.FullText != "Sunny" {
		t.Errorf("expected done event, got %#v", events[1])
	}
}

func TestStreamSurfacesBackendErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"model overloaded"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Stream(context.Background(), TurnRequest{SessionID: "s1", Message: "hi"}); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestSendDecodesInlineAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"text":"Hello","audio":"AQI=","audio_format":"mp3"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	reply, err := client.Send(context.Background(), TurnRequest{SessionID: "s1", Message: "hi"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if reply.Text != "Hello" {
		t.Errorf("unexpected reply text %q", reply.Text)
	}
	if len(reply.Audio) != 2 || reply.AudioFormat != "mp3" {
		t.Errorf("expected decoded 2-byte mp3 audio, got %d bytes of %q", len(reply.Audio), reply.AudioFormat)
	}
}

func TestSendProceedsWhenTokenProviderFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request TurnRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("failed to decode turn request: %v", err)
		}
		if request.AccessToken != "" {
			t.Errorf("expected no token, got %q", request.AccessToken)
		}
		fmt.Fprint(w, `{"text":"ok"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL,
		WithTokenProvider(func(context.Context) (string, error) {
			return "", fmt.Errorf("token cache expired")
		}),
	)
	if _, err := client.Send(context.Background(), TurnRequest{SessionID: "s1", Message: "hi"}); err != nil {
		t.Fatalf("expected turn to proceed without token, got: %v", err)
	}
}

func TestConfirmAction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/actions/confirm" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var request ConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("failed to decode confirm request: %v", err)
		}
		if request.ActionID != "d1" {
			t.Errorf("unexpected action id %q", request.ActionID)
		}
		fmt.Fprint(w, `{"status":"success","draft_id":"d1","message_id":"m1"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	reply, err := client.ConfirmAction(context.Background(), ConfirmRequest{ActionID: "d1"})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if reply.MessageID != "m1" {
		t.Errorf("unexpected message id %q", reply.MessageID)
	}
}

func TestConfirmActionRejectsFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","error":"draft no longer exists"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	reply, err := client.ConfirmAction(context.Background(), ConfirmRequest{ActionID: "gone"})
	if err == nil {
		t.Fatal("expected an error for a failed confirmation")
	}
	if reply == nil || reply.Error != "draft no longer exists" {
		t.Errorf("expected failure reply to be returned alongside the error, got %#v", reply)
	}
}

func TestConfirmActionRequiresID(t *testing.T) {
	client := NewClient("http://localhost:0")
	if _, err := client.ConfirmAction(context.Background(), ConfirmRequest{}); err == nil {
		t.Fatal("expected an error for a missing action id")
	}
}
