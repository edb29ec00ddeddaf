package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newGatewayServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("token method = %s, want POST", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Fatalf("unexpected basic auth: %q %q", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/", handler)

	return httptest.NewServer(mux)
}

func TestCreatePayment_OK(t *testing.T) {
	ts := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/payment" {
			t.Fatalf("path = %s, want /v1/payments/payment", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Fatalf("authorization = %q, want Bearer test-token", auth)
		}

		var req Payment
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Intent != "sale" {
			t.Fatalf("intent = %q, want sale", req.Intent)
		}
		if len(req.Transactions) != 1 || req.Transactions[0].Amount.Total != "25.00" {
			t.Fatalf("unexpected transactions: %+v", req.Transactions)
		}

		resp := Payment{
			ID:     "PAY-123",
			Intent: "sale",
			State:  "created",
			Links: []Link{
				{Href: "https://www.sandbox.paypal.com/cgi-bin/webscr?cmd=_express-checkout", Rel: "approval_url", Method: "REDIRECT"},
				{Href: "https://api.sandbox.paypal.com/v1/payments/payment/PAY-123", Rel: "self", Method: "GET"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	})
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payment, err := client.CreatePayment(ctx, &Payment{
		Intent: "sale",
		Payer:  Payer{PaymentMethod: "paypal"},
		Transactions: []Transaction{
			{Amount: Amount{Total: "25.00", Currency: "USD"}},
		},
	})
	if err != nil {
		t.Fatalf("CreatePayment error: %v", err)
	}
	if payment.ID != "PAY-123" {
		t.Fatalf("payment id = %q, want PAY-123", payment.ID)
	}
	if payment.ApprovalURL() == "" {
		t.Fatalf("approval url not found in %+v", payment.Links)
	}
}

func TestExecutePayment_OK(t *testing.T) {
	ts := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/payment/PAY-123/execute" {
			t.Fatalf("path = %s, want execute path", r.URL.Path)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["payer_id"] != "PAYER-1" {
			t.Fatalf("payer_id = %q, want PAYER-1", req["payer_id"])
		}

		resp := Payment{
			ID:    "PAY-123",
			State: "approved",
			Payer: Payer{
				PaymentMethod: "paypal",
				PayerInfo:     json.RawMessage(`{"email":"buyer@example.com"}`),
			},
			Transactions: []Transaction{
				{
					Amount: Amount{Total: "25.00", Currency: "USD"},
					RelatedResources: []RelatedResource{
						{Sale: &Sale{ID: "SALE-9", State: "completed"}},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	})
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payment, err := client.ExecutePayment(ctx, "PAY-123", "PAYER-1")
	if err != nil {
		t.Fatalf("ExecutePayment error: %v", err)
	}
	if payment.State != "approved" {
		t.Fatalf("state = %q, want approved", payment.State)
	}
	if len(payment.Transactions) != 1 || len(payment.Transactions[0].RelatedResources) != 1 {
		t.Fatalf("unexpected transactions: %+v", payment.Transactions)
	}
	if payment.Transactions[0].RelatedResources[0].Sale.ID != "SALE-9" {
		t.Fatalf("sale id = %q, want SALE-9", payment.Transactions[0].RelatedResources[0].Sale.ID)
	}
}

func TestGetPayment_NotFound(t *testing.T) {
	ts := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"name":"INVALID_RESOURCE_ID"}`))
	})
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.GetPayment(ctx, "PAY-UNKNOWN")
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestCreatePayment_Rejected(t *testing.T) {
	ts := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"name":"VALIDATION_ERROR"}`))
	})
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.CreatePayment(ctx, &Payment{Intent: "sale"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestGetPayment_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.GetPayment(ctx, "PAY-123")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
