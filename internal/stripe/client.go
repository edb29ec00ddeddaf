// Package stripe предоставляет клиент для создания checkout-сессий платёжного шлюза.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable возвращается при сетевой ошибке обращения к шлюзу.
var (
	ErrUnavailable = errors.New("stripe unavailable")
	// ErrRejected возвращается, когда шлюз отклонил запрос на своей стороне.
	// Текст ответа шлюза попадает в лог, но не возвращается клиенту API.
	ErrRejected = errors.New("stripe rejected request")
)

// Client инкапсулирует HTTP-взаимодействие со шлюзом Stripe.
type Client struct {
	baseURL    string
	secretKey  string
	currency   string
	successURL string
	cancelURL  string
	httpClient *http.Client
}

// LineItem описывает одну позицию checkout-сессии. UnitAmount задаётся
// в минимальных единицах валюты.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutSession описывает созданную шлюзом checkout-сессию.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NewClient создаёт HTTP-клиент шлюза Stripe.
func NewClient(baseURL, secretKey, currency, successURL, cancelURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		currency:   currency,
		successURL: successURL,
		cancelURL:  cancelURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCheckoutSession создаёт hosted checkout-сессию для оплаты картой
// в валюте, заданной при создании клиента.
func (c *Client) CreateCheckoutSession(ctx context.Context, items []LineItem) (*CheckoutSession, error) {
	if c == nil || c.secretKey == "" {
		return nil, fmt.Errorf("stripe client not configured")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)

	for i, item := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", c.currency)
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.FormatInt(item.Quantity, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, string(body))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &session, nil
}
