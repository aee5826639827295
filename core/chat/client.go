package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
)

// TokenProvider asynchronously resolves the access token forwarded to the
// backend with each request. Returning an empty token without an error is
// valid and simply omits the token.
type TokenProvider func(ctx context.Context) (string, error)

// Client talks to the chat backend: one-shot replies, the SSE reply stream,
// and the confirm-action request for pending side effects.
type Client struct {
	baseURL string
	userID  string
	voice   string

	tokenProvider TokenProvider

	// httpClient serves bounded requests (send, confirm, health).
	httpClient *http.Client
	// streamClient has no timeout: the reply stream stays open for as long
	// as the backend keeps producing, and a client-side deadline would
	// truncate valid replies.
	streamClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithTokenProvider(provider TokenProvider) ClientOption {
	return func(c *Client) { c.tokenProvider = provider }
}

func WithUserID(userID string) ClientOption {
	return func(c *Client) { c.userID = userID }
}

func WithVoice(voice string) ClientOption {
	return func(c *Client) { c.voice = voice }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
	}

	for _, opt := range opts {
		opt(client)
	}

	transport := otelhttp.NewTransport(http.DefaultTransport)
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 60 * time.Second, Transport: transport}
	}
	client.streamClient = &http.Client{Transport: transport}

	return client
}

// TurnRequest is the outbound body of one user turn. Everything beyond
// SessionID and Message is an opaque pass-through the backend may use for
// tool filtering and localization.
type TurnRequest struct {
	SessionID        string   `json:"session_id"`
	Message          string   `json:"message"`
	UserID           string   `json:"user_id,omitempty"`
	AccessToken      string   `json:"google_access_token,omitempty"`
	Voice            string   `json:"voice,omitempty"`
	AllowedToolNames []string `json:"allowed_tool_names,omitempty"`
	AllowedToolTags  []string `json:"allowed_tool_tags,omitempty"`
	TimezoneName     string   `json:"timezone_name,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
}

// TurnReply is the non-streaming chat response: the full reply text plus an
// optional inline speech rendering of it.
type TurnReply struct {
	Text        string
	Audio       []byte
	AudioFormat string
}

// Send submits one turn to the non-streaming chat endpoint and waits for the
// complete reply.
func (c *Client) Send(ctx context.Context, request TurnRequest) (*TurnReply, error) {
	ctx, span := tracer.Start(ctx, "chat send")
	defer span.End()

	body, err := c.prepareBody(ctx, request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var parsed struct {
		Text        string `json:"text"`
		Audio       string `json:"audio"`
		AudioFormat string `json:"audio_format"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode chat reply: %w", err)
	}

	reply := &TurnReply{Text: parsed.Text, AudioFormat: parsed.AudioFormat}
	if parsed.Audio != "" {
		if audio, err := decodeBase64Audio(parsed.Audio); err == nil {
			reply.Audio = audio
		} else {
			logger.WarnContext(ctx, "dropping undecodable inline audio", "error", err)
		}
	}

	return reply, nil
}

// Stream submits one turn to the streaming chat endpoint and returns the
// open event stream. The caller owns the stream and must drain or close it.
func (c *Client) Stream(ctx context.Context, request TurnRequest) (EventStream, error) {
	ctx, span := tracer.Start(ctx, "chat stream open")
	defer span.End()

	body, err := c.prepareBody(ctx, request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("chat stream request failed: %w", err)
	}

	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return newTurnStream(resp.Body), nil
}

// Health probes the backend's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) prepareBody(ctx context.Context, request TurnRequest) ([]byte, error) {
	if request.UserID == "" {
		request.UserID = c.userID
	}
	if request.Voice == "" {
		request.Voice = c.voice
	}
	if request.AccessToken == "" && c.tokenProvider != nil {
		token, err := c.tokenProvider(ctx)
		if err != nil {
			// A stale or missing token downgrades tool access instead of
			// blocking the turn.
			logger.WarnContext(ctx, "token provider failed, sending turn without token", "error", err)
		} else {
			request.AccessToken = token
		}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode turn request: %w", err)
	}
	return body, nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var parsed struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != "" {
		return fmt.Errorf("backend error: %s", parsed.Error)
	}
	return fmt.Errorf("backend returned %s", resp.Status)
}
