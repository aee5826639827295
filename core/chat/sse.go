package chat

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EventStream is one open reply stream. Events is a single-use iterator:
// it yields decoded events strictly in arrival order and returns when the
// stream ends, errors out, or the consumer stops. Err reports the transport
// or decode failure that ended the stream, if any.
type EventStream interface {
	Events(yield func(StreamEvent) bool)
	Err() error
	Close() error
}

type turnStream struct {
	body io.ReadCloser
	err  error
}

func newTurnStream(body io.ReadCloser) *turnStream {
	return &turnStream{body: body}
}

func (s *turnStream) Events(yield func(StreamEvent) bool) {
	defer s.body.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var eventName string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if eventName != "" || data.Len() > 0 {
				event, ok, err := decodeEvent(eventName, data.String())
				eventName = ""
				data.Reset()
				if err != nil {
					s.err = err
					return
				}
				if ok && !yield(event) {
					return
				}
			}
		case strings.HasPrefix(line, ":"):
			// Comment/keep-alive, ignore.
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil {
		s.err = fmt.Errorf("reply stream interrupted: %w", err)
	}
}

func (s *turnStream) Err() error { return s.err }

func (s *turnStream) Close() error { return s.body.Close() }

// decodeEvent maps one named SSE payload to a typed StreamEvent. Unknown
// event names are dropped (ok=false) so newer backends stay compatible. A
// malformed payload for a known event is a stream error, except audio chunks
// whose decode failures are skipped so one bad chunk cannot end the reply.
func decodeEvent(name, data string) (StreamEvent, bool, error) {
	switch name {
	case "text_delta":
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, false, fmt.Errorf("malformed text_delta event: %w", err)
		}
		return TextDelta{Text: payload.Text}, true, nil

	case "tool_call":
		var payload struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, false, fmt.Errorf("malformed tool_call event: %w", err)
		}
		return ToolCall{Name: payload.Name, Arguments: payload.Arguments}, true, nil

	case "tool_result":
		var payload struct {
			Name   string `json:"name"`
			Result string `json:"result"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, false, fmt.Errorf("malformed tool_result event: %w", err)
		}
		return ToolResult{Name: payload.Name, Result: payload.Result}, true, nil

	case "audio":
		var payload struct {
			Audio  string `json:"audio"`
			Format string `json:"format"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, false, nil
		}
		audio, err := decodeBase64Audio(payload.Audio)
		if err != nil {
			return nil, false, nil
		}
		return AudioChunk{Audio: audio, Format: payload.Format}, true, nil

	case "done":
		var payload struct {
			FullText string `json:"full_text"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, false, fmt.Errorf("malformed done event: %w", err)
		}
		return Done{FullText: payload.FullText}, true, nil

	case "error":
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, false, fmt.Errorf("malformed error event: %w", err)
		}
		return StreamError{Message: payload.Message}, true, nil
	}

	return nil, false, nil
}

func decodeBase64Audio(encoded string) ([]byte, error) {
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}
	return audio, nil
}
