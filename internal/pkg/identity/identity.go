// Package identity verifies signed sign-in messages against an external
// identity relay.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrVerificationFailed is returned when the relay rejects the credentials.
var ErrVerificationFailed = errors.New("sign-in message verification failed")

// Credentials is a signed sign-in message.
type Credentials struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
	Domain    string `json:"domain"`
}

// Verifier checks credentials and returns the external id that signed them.
type Verifier interface {
	Verify(ctx context.Context, creds Credentials) (int64, error)
}

// RelayClient verifies credentials through the relay's HTTP API.
type RelayClient struct {
	baseURL string
	client  *http.Client
}

// NewRelayClient creates a RelayClient for baseURL.
func NewRelayClient(baseURL string, timeout time.Duration) *RelayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RelayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type verifyResponse struct {
	Success bool   `json:"success"`
	FID     int64  `json:"fid"`
	Error   string `json:"error,omitempty"`
}

// Verify posts creds to the relay's verify endpoint.
func (c *RelayClient) Verify(ctx context.Context, creds Credentials) (int64, error) {
	if !strings.HasPrefix(creds.Signature, "0x") {
		return 0, fmt.Errorf("%w: signature must be 0x-prefixed", ErrVerificationFailed)
	}

	body, err := json.Marshal(creds)
	if err != nil {
		return 0, fmt.Errorf("failed to encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach identity relay: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("identity relay returned %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("failed to decode relay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !out.Success || out.FID == 0 {
		log.Debug().
			Int("status", resp.StatusCode).
			Str("error", out.Error).
			Msg("Relay rejected sign-in message")
		return 0, ErrVerificationFailed
	}

	return out.FID, nil
}
