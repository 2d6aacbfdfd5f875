/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package signaling

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOfferSDP = "v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\ns=-\r\nt=0 0\r\n"

func TestCreateEphemeralKey(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		wantKey  string
		wantErr  bool
		protocol bool
	}{
		{
			name:    "valid response returns the nested value",
			status:  http.StatusOK,
			body:    `{"id":"sess_123","client_secret":{"value":"ek_abc123","expires_at":1735689600}}`,
			wantKey: "ek_abc123",
		},
		{
			name:     "missing client_secret",
			status:   http.StatusOK,
			body:     `{"id":"sess_123"}`,
			wantErr:  true,
			protocol: true,
		},
		{
			name:     "empty value",
			status:   http.StatusOK,
			body:     `{"client_secret":{"value":""}}`,
			wantErr:  true,
			protocol: true,
		},
		{
			name:     "malformed json",
			status:   http.StatusOK,
			body:     `{"client_secret":`,
			wantErr:  true,
			protocol: true,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"bad key"}}`,
			wantErr: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    ``,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/realtime/sessions", r.URL.Path)
				assert.Equal(t, "Bearer sk-long-lived", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				payload, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				assert.JSONEq(t, `{"model":"gpt-4o-realtime-preview"}`, string(payload))

				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "", "sk-long-lived")
			key, err := c.CreateEphemeralKey(context.Background())

			if tc.wantErr {
				require.Error(t, err)
				assert.Empty(t, key)
				if tc.protocol {
					assert.ErrorIs(t, err, ErrProtocol)
				} else {
					assert.NotErrorIs(t, err, ErrProtocol)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantKey, key)
		})
	}
}

func TestCreateEphemeralKeyTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "", "sk-long-lived")
	key, err := c.CreateEphemeralKey(context.Background())

	require.Error(t, err)
	assert.Empty(t, key)
	assert.NotErrorIs(t, err, ErrProtocol)
}

func TestExchangeOffer(t *testing.T) {
	const answer = "v=0\r\no=- 2 2 IN IP4 10.0.0.1\r\ns=-\r\nt=0 0\r\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/realtime", r.URL.Path)
		assert.Equal(t, "gpt-4o-realtime-preview", r.URL.Query().Get("model"))
		assert.Equal(t, "Bearer ek_abc123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/sdp", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/sdp", r.Header.Get("Accept"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, testOfferSDP, string(body))

		w.Header().Set("Content-Type", "application/sdp")
		_, _ = w.Write([]byte(answer))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "sk-unused-here")
	got, err := c.ExchangeOffer(context.Background(), testOfferSDP, "ek_abc123")

	require.NoError(t, err)
	assert.Equal(t, answer, got, "answer body must be returned verbatim")
}

func TestExchangeOfferRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "sk")
	got, err := c.ExchangeOffer(context.Background(), testOfferSDP, "ek_expired")

	require.Error(t, err)
	assert.Empty(t, got)
}

func TestExchangeOfferTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "", "sk")
	got, err := c.ExchangeOffer(context.Background(), testOfferSDP, "ek")

	require.Error(t, err)
	assert.Empty(t, got)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", "", "sk")
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, DefaultModel, c.Model)
	assert.NotNil(t, c.HTTPClient)

	c = NewClient("https://example.com/", "custom-model", "sk")
	assert.Equal(t, "https://example.com", c.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "custom-model", c.Model)
}
