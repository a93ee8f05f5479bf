package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPAPI talks to the claim REST surface with the viewer's bearer token.
type HTTPAPI struct {
	baseURL string
	token   string
	client  *http.Client

	// defaultTimeout backfills deadlines of degraded payloads.
	defaultTimeout time.Duration
}

func NewHTTPAPI(baseURL, token string, defaultTimeout time.Duration) *HTTPAPI {
	return &HTTPAPI{
		baseURL:        baseURL,
		token:          token,
		client:         &http.Client{Timeout: 15 * time.Second},
		defaultTimeout: defaultTimeout,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *HTTPAPI) PendingClaims(ctx context.Context) (*SnapshotResult, error) {
	env, err := a.request(ctx, http.MethodGet, "/claims/pending", nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Claims     []json.RawMessage `json:"claims"`
		ServerTime time.Time         `json:"server_time"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	result := &SnapshotResult{ServerTime: body.ServerTime}
	for _, raw := range body.Claims {
		if n, ok := decodeNotification(raw, time.Now(), a.defaultTimeout); ok {
			result.Claims = append(result.Claims, n)
		}
	}
	return result, nil
}

func (a *HTTPAPI) Claim(ctx context.Context, id string) (*Notification, error) {
	env, err := a.request(ctx, http.MethodGet, "/claims/"+id, nil)
	if err != nil {
		return nil, err
	}
	return a.decodeClaim(env.Data)
}

func (a *HTTPAPI) Resolve(ctx context.Context, id string, action Action, adminComment string) (*Notification, error) {
	var body []byte
	if adminComment != "" {
		body, _ = json.Marshal(map[string]string{"admin_comment": adminComment})
	}

	env, err := a.request(ctx, http.MethodPost, fmt.Sprintf("/claims/%s/%s", id, action), body)
	if err != nil {
		// An ALREADY_RESOLVED response still carries the server's actual
		// claim state for the rollback.
		if env != nil && len(env.Data) > 0 {
			if n, derr := a.decodeClaim(env.Data); derr == nil {
				return n, err
			}
		}
		return nil, err
	}
	return a.decodeClaim(env.Data)
}

func (a *HTTPAPI) decodeClaim(data json.RawMessage) (*Notification, error) {
	n, ok := decodeNotification(data, time.Now(), a.defaultTimeout)
	if !ok {
		return nil, fmt.Errorf("undecodable claim payload")
	}
	return n, nil
}

func (a *HTTPAPI) request(ctx context.Context, method, path string, body []byte) (*envelope, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	if env.Success {
		return &env, nil
	}

	code := ""
	if env.Error != nil {
		code = env.Error.Code
	}
	switch code {
	case "ALREADY_RESOLVED":
		return &env, ErrAlreadyResolved
	case "NOT_FOUND":
		return &env, ErrNotFound
	default:
		msg := code
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return &env, fmt.Errorf("%s %s: %s (status %d)", method, path, msg, resp.StatusCode)
	}
}
