package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fastprintguys/printbook-system/internal/paypal"
	"github.com/fastprintguys/printbook-system/internal/service"
	"github.com/fastprintguys/printbook-system/internal/stripe"
)

type paymentError struct {
	Error string `json:"error"`
}

func (h *Handler) writePaymentError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, paymentError{Error: message})
}

type checkoutItemRequest struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
}

type checkoutRequest struct {
	Items []checkoutItemRequest `json:"items"`
}

// CreateCheckoutSession создаёт hosted-checkout сессию Stripe для переданных позиций.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writePaymentError(w, http.StatusBadRequest, "Invalid data provided")
		return
	}

	if len(req.Items) == 0 {
		h.writePaymentError(w, http.StatusBadRequest, "Items are required")
		return
	}

	items := make([]service.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CheckoutItem{
			Name:       item.Name,
			UnitAmount: item.UnitAmount,
			Quantity:   item.Quantity,
		})
	}

	session, err := h.service.CreateCheckout(r.Context(), items)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			h.writePaymentError(w, http.StatusBadRequest, "Each item must have name, unit_amount, and quantity")
		case errors.Is(err, stripe.ErrRejected):
			h.logger.Error("stripe error", zap.Error(err))
			h.writePaymentError(w, http.StatusBadRequest, "Payment processing error")
		default:
			h.logger.Error("create checkout session error", zap.Error(err))
			h.writePaymentError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}{
		ID:  session.ID,
		URL: session.URL,
	})
}

type createPayPalRequest struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

// CreatePayPalPayment создаёт платёж PayPal и возвращает ссылку для одобрения.
func (h *Handler) CreatePayPalPayment(w http.ResponseWriter, r *http.Request) {
	var req createPayPalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writePaymentError(w, http.StatusBadRequest, "Invalid data provided")
		return
	}

	created, err := h.service.CreatePayPalPayment(r.Context(), service.PayPalPaymentInput{
		Amount:    req.Amount,
		Currency:  req.Currency,
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	})
	if err != nil {
		h.writePayPalError(w, err, "create paypal payment error", "Failed to create PayPal payment")
		return
	}

	h.writeJSON(w, http.StatusCreated, struct {
		PaymentID   string `json:"payment_id"`
		ApprovalURL string `json:"approval_url"`
		Status      string `json:"status"`
	}{
		PaymentID:   created.PaymentID,
		ApprovalURL: created.ApprovalURL,
		Status:      created.Status,
	})
}

func (h *Handler) writePayPalError(w http.ResponseWriter, err error, logMsg, rejectedMsg string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		h.writePaymentError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, paypal.ErrPaymentNotFound):
		h.writePaymentError(w, http.StatusNotFound, "Payment not found")
	case errors.Is(err, paypal.ErrRejected):
		h.logger.Error(logMsg, zap.Error(err))
		h.writePaymentError(w, http.StatusBadRequest, rejectedMsg)
	case errors.Is(err, paypal.ErrUnavailable):
		h.logger.Error(logMsg, zap.Error(err))
		h.writePaymentError(w, http.StatusServiceUnavailable, "PayPal service unavailable")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		h.writePaymentError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// validationMessage обрезает префикс сентинеля, оставляя человекочитаемую часть.
func validationMessage(err error) string {
	msg := err.Error()
	if trimmed, found := strings.CutPrefix(msg, service.ErrValidation.Error()+": "); found {
		return trimmed
	}
	return msg
}

type executePayPalRequest struct {
	PaymentID string `json:"payment_id"`
	PayerID   string `json:"payer_id"`
}

// ExecutePayPalPayment проводит одобренный плательщиком платёж PayPal.
func (h *Handler) ExecutePayPalPayment(w http.ResponseWriter, r *http.Request) {
	var req executePayPalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writePaymentError(w, http.StatusBadRequest, "Invalid data provided")
		return
	}

	executed, err := h.service.ExecutePayPalPayment(r.Context(), req.PaymentID, req.PayerID)
	if err != nil {
		h.writePayPalError(w, err, "execute paypal payment error", "Failed to execute PayPal payment")
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		PaymentID     string          `json:"payment_id"`
		Status        string          `json:"status"`
		PayerInfo     json.RawMessage `json:"payer_info"`
		TransactionID string          `json:"transaction_id"`
	}{
		PaymentID:     executed.PaymentID,
		Status:        executed.Status,
		PayerInfo:     executed.PayerInfo,
		TransactionID: executed.TransactionID,
	})
}

// PayPalPaymentDetails возвращает запись платежа PayPal по идентификатору.
func (h *Handler) PayPalPaymentDetails(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	payment, err := h.service.PayPalPaymentDetails(r.Context(), paymentID)
	if err != nil {
		h.writePayPalError(w, err, "paypal payment details error", "Failed to fetch PayPal payment")
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		PaymentID    string               `json:"payment_id"`
		State        string               `json:"state"`
		Intent       string               `json:"intent"`
		Payer        paypal.Payer         `json:"payer"`
		Transactions []paypal.Transaction `json:"transactions"`
		CreateTime   string               `json:"create_time"`
		UpdateTime   string               `json:"update_time"`
	}{
		PaymentID:    payment.ID,
		State:        payment.State,
		Intent:       payment.Intent,
		Payer:        payment.Payer,
		Transactions: payment.Transactions,
		CreateTime:   payment.CreateTime,
		UpdateTime:   payment.UpdateTime,
	})
}
