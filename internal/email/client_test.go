package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lilohq/lilo-bookings/internal/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test_key", r.Header.Get("Authorization"))

		var payload struct {
			From    string   `json:"from"`
			To      []string `json:"to"`
			Subject string   `json:"subject"`
			HTML    string   `json:"html"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "bookings@lilo.example", payload.From)
		assert.Equal(t, []string{"guest@example.com"}, payload.To)
		assert.NotEmpty(t, payload.HTML)

		json.NewEncoder(w).Encode(map[string]string{"id": "email_123"})
	}))
	defer srv.Close()

	client := email.NewClient("re_test_key", "bookings@lilo.example", email.WithBaseURL(srv.URL))
	msg := email.ConfirmationMessage("guest@example.com", "Ana", "Sunset kayak tour", "Marco", 2, 13000, time.Now())
	id, err := client.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "email_123", id)
}

func TestSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := email.NewClient("re_test_key", "bookings@lilo.example", email.WithBaseURL(srv.URL))
	_, err := client.Send(context.Background(), email.Message{To: []string{"guest@example.com"}})
	assert.Error(t, err)
}
