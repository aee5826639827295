package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/codes"
)

// ConfirmRequest asks the backend to execute a previously prepared
// side-effecting action (e.g. send a drafted email).
type ConfirmRequest struct {
	ActionID    string `json:"action_id"`
	UserID      string `json:"user_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

type ConfirmReply struct {
	Status    string `json:"status"`
	DraftID   string `json:"draft_id"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// ConfirmAction executes the pending action identified by request.ActionID.
// The returned reply has Status "success" when the side effect went through;
// any other status or transport failure is an error so callers can keep the
// action retryable.
func (c *Client) ConfirmAction(ctx context.Context, request ConfirmRequest) (*ConfirmReply, error) {
	ctx, span := tracer.Start(ctx, "confirm action")
	defer span.End()

	if request.ActionID == "" {
		return nil, fmt.Errorf("action id is required")
	}

	if request.UserID == "" {
		request.UserID = c.userID
	}
	if request.AccessToken == "" && c.tokenProvider != nil {
		if token, err := c.tokenProvider(ctx); err == nil {
			request.AccessToken = token
		} else {
			logger.WarnContext(ctx, "token provider failed, confirming without token", "error", err)
		}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode confirm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/actions/confirm", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build confirm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("confirm request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var reply ConfirmReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode confirm reply: %w", err)
	}

	if reply.Status != "success" {
		message := reply.Error
		if message == "" {
			message = fmt.Sprintf("confirm returned status %q", reply.Status)
		}
		return &reply, fmt.Errorf("confirm rejected: %s", message)
	}

	return &reply, nil
}
