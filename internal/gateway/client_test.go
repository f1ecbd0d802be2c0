package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendText(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "ABC123"})
	}))
	defer srv.Close()

	client := NewClient(nil, srv.URL, 0)
	result, err := client.SendText(context.Background(), "cred-1", "628@s.whatsapp.net", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", result.ExternalID)
	assert.Equal(t, "Bearer cred-1", gotAuth)
	assert.Equal(t, "628@s.whatsapp.net", gotBody.ChatID)
	assert.Equal(t, "hello", gotBody.Body)
}

func TestClientSendTextToleratesOpaqueSuccessPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	client := NewClient(nil, srv.URL, 0)
	result, err := client.SendText(context.Background(), "cred", "chat", "body")
	require.NoError(t, err)
	assert.Empty(t, result.ExternalID)
}

func TestClientSendTextErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not connected", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(nil, srv.URL, 0)
	_, err := client.SendText(context.Background(), "cred", "chat", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
