package payments_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lilohq/lilo-bookings/internal/domain"
	"github.com/lilohq/lilo-bookings/internal/payments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "6500", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "bk_1", r.PostForm.Get("metadata[booking_id]"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "cs_test_abc",
			"url":            "https://checkout.example/cs_test_abc",
			"payment_status": "unpaid",
			"amount_total":   13000,
		})
	}))
	defer srv.Close()

	client := payments.NewClient("sk_test_123", payments.WithBaseURL(srv.URL))
	session, err := client.CreateCheckoutSession(context.Background(), payments.CheckoutParams{
		BookingID:    "bk_1",
		ExperienceID: "exp_1",
		Description:  "Sunset kayak tour",
		UnitAmount:   6500,
		Quantity:     2,
		SuccessURL:   "https://lilo.example/success",
		CancelURL:    "https://lilo.example/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_abc", session.ID)
	assert.Equal(t, "https://checkout.example/cs_test_abc", session.URL)
	assert.False(t, session.Paid())
}

func TestGetCheckoutSessionPaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/cs_test_abc", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "cs_test_abc",
			"payment_status": "paid",
			"amount_total":   13000,
			"metadata":       map[string]string{"booking_id": "bk_1"},
		})
	}))
	defer srv.Close()

	client := payments.NewClient("sk_test_123", payments.WithBaseURL(srv.URL))
	session, err := client.GetCheckoutSession(context.Background(), "cs_test_abc")
	require.NoError(t, err)
	assert.True(t, session.Paid())
	assert.Equal(t, "bk_1", session.Metadata["booking_id"])
}

func TestProviderErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "your card was declined"},
		})
	}))
	defer srv.Close()

	client := payments.NewClient("sk_test_123", payments.WithBaseURL(srv.URL))
	_, err := client.GetCheckoutSession(context.Background(), "cs_test_abc")
	assert.ErrorIs(t, err, domain.ErrPaymentProvider)
	assert.Contains(t, err.Error(), "card was declined")
}
