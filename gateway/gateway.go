// Package gateway is the translation and network boundary to the external
// payment provider: checkout-session creation, webhook envelope decoding and
// webhook signature verification.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Error wraps any transport or provider failure during session creation. It
// is the signal that triggers checkout compensation.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
	}
	return "gateway error: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// LineItem is one order line in provider format; Amount is the unit price in
// minor currency units.
type LineItem struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

// SessionRequest carries everything the provider needs to host a payment
// page. Metadata travels to the provider and comes back on webhook events,
// carrying the internal order id for correlation.
type SessionRequest struct {
	Reference     string            `json:"reference"`
	LineItems     []LineItem        `json:"line_items"`
	SuccessURL    string            `json:"success_url"`
	CancelURL     string            `json:"cancel_url"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Session is the provider's handle on a created payment session.
type Session struct {
	ID          string
	RedirectURL string
}

type sessionResponse struct {
	Session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"session"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SessionCreator is what the checkout orchestrator depends on.
type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// Client talks to the provider's session-creation API.
type Client struct {
	apiURL  string
	apiKey  string
	sandbox bool
	http    *http.Client
}

func NewClient(apiURL, apiKey string, sandbox bool) *Client {
	return &Client{
		apiURL:  apiURL,
		apiKey:  apiKey,
		sandbox: sandbox,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateSession posts the session-creation request and returns the session id
// and hosted-page redirect URL. Every failure mode comes back as *Error.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	payload := struct {
		Method string `json:"method"`
		Test   bool   `json:"test"`
		SessionRequest
	}{
		Method:         "create",
		Test:           c.sandbox,
		SessionRequest: req,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Message: "encode session request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Message: "build session request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Message: "provider unreachable", Err: pkgerrors.Wrap(err, "create session")}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "read provider response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: string(respBody),
		}
	}

	var parsed sessionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &Error{Message: "parse provider response", Err: err}
	}
	if parsed.Error != nil {
		return nil, &Error{Code: parsed.Error.Code, Message: parsed.Error.Message}
	}
	if parsed.Session.URL == "" || parsed.Session.ID == "" {
		return nil, &Error{Message: "provider returned empty session"}
	}

	return &Session{ID: parsed.Session.ID, RedirectURL: parsed.Session.URL}, nil
}
