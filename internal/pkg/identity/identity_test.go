package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relay(t *testing.T, status int, resp verifyResponse) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/verify", r.URL.Path)

		var creds Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "n1", creds.Nonce)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func creds() Credentials {
	return Credentials{Message: "msg", Signature: "0xabc", Nonce: "n1", Domain: "example.com"}
}

func TestRelayClient_Verify(t *testing.T) {
	srv := relay(t, http.StatusOK, verifyResponse{Success: true, FID: 42})

	fid, err := NewRelayClient(srv.URL+"/", time.Second).Verify(context.Background(), creds())
	require.NoError(t, err)
	assert.Equal(t, int64(42), fid)
}

func TestRelayClient_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		resp   verifyResponse
	}{
		{"unsuccessful", http.StatusOK, verifyResponse{Success: false, Error: "bad signature"}},
		{"missing fid", http.StatusOK, verifyResponse{Success: true}},
		{"client error", http.StatusBadRequest, verifyResponse{Error: "invalid nonce"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := relay(t, tt.status, tt.resp)
			_, err := NewRelayClient(srv.URL, time.Second).Verify(context.Background(), creds())
			assert.ErrorIs(t, err, ErrVerificationFailed)
		})
	}
}

func TestRelayClient_ServerError(t *testing.T) {
	srv := relay(t, http.StatusBadGateway, verifyResponse{})

	_, err := NewRelayClient(srv.URL, time.Second).Verify(context.Background(), creds())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVerificationFailed)
}

func TestRelayClient_UnprefixedSignature(t *testing.T) {
	c := creds()
	c.Signature = "abc"

	_, err := NewRelayClient("http://unused.invalid", time.Second).Verify(context.Background(), c)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}
