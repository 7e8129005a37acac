// Package dispatch delivers command outcomes to caller-supplied callback URLs.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrCallbackURLRequired indicates delivery was attempted without a target.
var ErrCallbackURLRequired = errors.New("callback url is required")

// Message mirrors the chat platform's callback JSON body.
type Message struct {
	Text string `json:"text"`
}

// Dispatcher posts outcome messages to one-shot callback URLs.
//
// Delivery is attempted exactly once. Callback URLs stay valid for a short,
// bounded window after the triggering request; a retry after expiry cannot
// succeed, so failures are reported to the caller for logging instead.
type Dispatcher struct {
	client *http.Client
}

// NewDispatcher creates a dispatcher using the provided HTTP client.
func NewDispatcher(client *http.Client) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Dispatcher{client: client}
}

// Deliver posts {"text": message} to callbackURL. A nil error means the
// receiver acknowledged with a 2xx status.
func (d *Dispatcher) Deliver(ctx context.Context, callbackURL string, message string) error {
	if d == nil || d.client == nil {
		return errors.New("dispatcher is not configured")
	}
	callbackURL = strings.TrimSpace(callbackURL)
	if callbackURL == "" {
		return ErrCallbackURLRequired
	}

	body, err := json.Marshal(Message{Text: message})
	if err != nil {
		return fmt.Errorf("encode callback body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback returned %s", resp.Status)
	}
	return nil
}
