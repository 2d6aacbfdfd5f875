/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package signaling talks to the realtime-API signaling service: it trades
// the long-lived API key for an ephemeral session key and exchanges the
// local SDP offer for the remote answer.
package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Defaults recovered from the realtime service contract.
const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-realtime-preview"

	sessionsPath = "/v1/realtime/sessions"
	realtimePath = "/v1/realtime"

	requestTimeout = 30 * time.Second
)

// ErrProtocol marks responses that arrived but did not carry the expected
// shape (bad JSON, missing client_secret.value). Transport-level failures
// are reported as plain wrapped errors.
var ErrProtocol = errors.New("malformed signaling response")

// Client performs the two signaling POSTs. It holds no per-attempt state;
// one client serves any number of negotiation attempts.
type Client struct {
	BaseURL    string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient builds a client with sane defaults for unset fields.
func NewClient(baseURL, model, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}
}

type sessionResponse struct {
	ClientSecret struct {
		Value string `json:"value"`
	} `json:"client_secret"`
}

// CreateEphemeralKey exchanges the API key for a short-lived session key.
// The key is used exactly once as the authorization for ExchangeOffer and is
// never persisted. No retry on failure; the orchestrator decides what an
// absent key means.
func (c *Client) CreateEphemeralKey(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{"model": c.Model})
	if err != nil {
		return "", fmt.Errorf("encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+sessionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("session request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read session response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("session request status %d", resp.StatusCode)
	}

	var parsed sessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if parsed.ClientSecret.Value == "" {
		log.Debugf("unexpected session response: %#v\n", string(body))
		return "", fmt.Errorf("%w: missing client_secret.value", ErrProtocol)
	}

	log.Debugf("ephemeral key: %s...", truncate(parsed.ClientSecret.Value, 20))
	return parsed.ClientSecret.Value, nil
}

// ExchangeOffer posts the raw offer SDP authorized with the ephemeral key and
// returns the raw answer body verbatim. The payload is not interpreted here;
// the orchestrator owns that.
func (c *Client) ExchangeOffer(ctx context.Context, offerSDP, ephemeralKey string) (string, error) {
	endpoint := c.BaseURL + realtimePath + "?model=" + url.QueryEscape(c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(offerSDP))
	if err != nil {
		return "", fmt.Errorf("build exchange request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ephemeralKey)
	req.Header.Set("Content-Type", "application/sdp")
	req.Header.Set("Accept", "application/sdp")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read exchange response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debugf("exchange response body: %#v\n", string(body))
		return "", fmt.Errorf("exchange request status %d", resp.StatusCode)
	}

	return string(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
