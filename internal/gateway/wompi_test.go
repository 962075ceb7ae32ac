package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/gateway"

	"github.com/stretchr/testify/assert"
)

func newWompi(baseURL string) *gateway.WompiGateway {
	return gateway.NewWompiGateway(gateway.WompiConfig{
		PublicKey:   "pub_test_key",
		PrivateKey:  "prv_test_key",
		BaseURL:     baseURL,
		FrontendURL: "https://shop.example",
	})
}

func TestWompiInitiateCreatesPaymentLink(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payment_links", r.URL.Path)
		assert.Equal(t, "Bearer prv_test_key", r.Header.Get("Authorization"))

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "lnk_abc"}})
	}))
	defer srv.Close()

	out, err := newWompi(srv.URL).Initiate(context.Background(), gateway.InitiateRequest{
		OrderID:       "order-1",
		Amount:        70000,
		CustomerEmail: "ana@example.com",
		CustomerName:  "Ana Torres",
	})
	assert.NoError(t, err)
	assert.Equal(t, "https://checkout.wompi.co/l/lnk_abc", out.CheckoutURL)
	assert.Equal(t, "order-1", out.ExternalReference)

	//Wompiはセント単位、referenceは注文ID
	assert.Equal(t, float64(7000000), got["amount_in_cents"])
	assert.Equal(t, "order-1", got["reference"])
	assert.Equal(t, "COP", got["currency"])
	assert.Contains(t, got["redirect_url"], "order_id=order-1")
}

func TestWompiInitiateNon201IsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid amount"}`))
	}))
	defer srv.Close()

	_, err := newWompi(srv.URL).Initiate(context.Background(), gateway.InitiateRequest{OrderID: "order-1", Amount: 100})
	ge, ok := gateway.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, "wompi", ge.Provider)
	assert.Equal(t, http.StatusUnprocessableEntity, ge.StatusCode)
}

func TestWompiInitiateMissingLinkID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	_, err := newWompi(srv.URL).Initiate(context.Background(), gateway.InitiateRequest{OrderID: "order-1", Amount: 100})
	ge, ok := gateway.AsError(err)
	assert.True(t, ok)
	assert.Contains(t, ge.Message, "missing payment link id")
}

func TestWompiFetchStatusMapsTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/txn-1", r.URL.Path)
		assert.Equal(t, "Bearer pub_test_key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"id":              "txn-1",
			"status":          "APPROVED",
			"reference":       "order-1",
			"amount_in_cents": 7000000,
		}})
	}))
	defer srv.Close()

	ev, err := newWompi(srv.URL).FetchStatus(context.Background(), "txn-1")
	assert.NoError(t, err)
	assert.Equal(t, "wompi", ev.Provider)
	assert.Equal(t, "txn-1", ev.PaymentID)
	assert.Equal(t, model.PaymentStatusApproved, ev.Status)
	assert.Equal(t, "order-1", ev.ExternalReference)
	//セント単位からペソへ戻す
	assert.Equal(t, int64(70000), ev.Amount)
}

func TestWompiFetchStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newWompi(srv.URL).FetchStatus(context.Background(), "ghost")
	ge, ok := gateway.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ge.StatusCode)
}

func TestMapWompiStatus(t *testing.T) {
	var status string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"id": "txn-1", "status": status, "reference": "order-1", "amount_in_cents": 100,
		}})
	}))
	defer srv.Close()

	cases := map[string]model.PaymentStatus{
		"APPROVED": model.PaymentStatusApproved,
		"PENDING":  model.PaymentStatusPending,
		"DECLINED": model.PaymentStatusRejected,
		"ERROR":    model.PaymentStatusRejected,
		"VOIDED":   model.PaymentStatusCancelled,
		"UNKNOWN":  model.PaymentStatusPending,
	}
	for in, want := range cases {
		status = in
		ev, err := newWompi(srv.URL).FetchStatus(context.Background(), "txn-1")
		assert.NoError(t, err, in)
		assert.Equal(t, want, ev.Status, in)
	}
}
