// Package paypal предоставляет клиент для платёжного шлюза PayPal REST API.
package paypal

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
)

// ErrUnavailable возвращается при сетевой ошибке обращения к шлюзу.
var (
	ErrUnavailable = errors.New("paypal unavailable")
	// ErrPaymentNotFound возвращается, если шлюз не знает указанный платёж.
	ErrPaymentNotFound = errors.New("paypal payment not found")
	// ErrRejected возвращается, когда шлюз отклонил запрос на своей стороне.
	// Текст ответа шлюза попадает в лог, но не возвращается клиенту API.
	ErrRejected = errors.New("paypal rejected request")
)

// Client инкапсулирует HTTP-взаимодействие со шлюзом PayPal.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewClient создаёт HTTP-клиент шлюза PayPal.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Amount описывает сумму платежа в строковом представлении шлюза.
type Amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// Item описывает позицию в списке товаров платежа.
type Item struct {
	Name     string `json:"name"`
	SKU      string `json:"sku,omitempty"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

// ItemList содержит позиции платежа.
type ItemList struct {
	Items []Item `json:"items"`
}

// Sale описывает проведённую продажу в составе платежа.
type Sale struct {
	ID    string `json:"id"`
	State string `json:"state,omitempty"`
}

// RelatedResource описывает связанный ресурс транзакции.
type RelatedResource struct {
	Sale *Sale `json:"sale,omitempty"`
}

// Transaction описывает транзакцию платежа.
type Transaction struct {
	Amount           Amount            `json:"amount"`
	Description      string            `json:"description,omitempty"`
	ItemList         *ItemList         `json:"item_list,omitempty"`
	RelatedResources []RelatedResource `json:"related_resources,omitempty"`
}

// Payer описывает плательщика. PayerInfo заполняется шлюзом после одобрения
// платежа и передаётся без изменений.
type Payer struct {
	PaymentMethod string          `json:"payment_method"`
	PayerInfo     json.RawMessage `json:"payer_info,omitempty"`
}

// Link описывает ссылку из ответа шлюза.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// RedirectURLs содержит адреса возврата пользователя после одобрения или отмены.
type RedirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

// Payment описывает платёж в представлении шлюза.
type Payment struct {
	ID           string        `json:"id,omitempty"`
	Intent       string        `json:"intent"`
	State        string        `json:"state,omitempty"`
	Payer        Payer         `json:"payer"`
	Transactions []Transaction `json:"transactions"`
	RedirectURLs *RedirectURLs `json:"redirect_urls,omitempty"`
	Links        []Link        `json:"links,omitempty"`
	CreateTime   string        `json:"create_time,omitempty"`
	UpdateTime   string        `json:"update_time,omitempty"`
}

// ApprovalURL возвращает адрес страницы одобрения платежа из списка ссылок
// шлюза или пустую строку, если такой ссылки нет.
func (p *Payment) ApprovalURL() string {
	for _, link := range p.Links {
		if link.Rel == "approval_url" {
			return link.Href
		}
	}
	return ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: token status %d: %s", ErrRejected, resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response")
	}

	return tok.AccessToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*Payment, error) {
	if c == nil || c.clientID == "" {
		return nil, fmt.Errorf("paypal client not configured")
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPaymentNotFound
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, string(respBody))
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &payment, nil
}

// CreatePayment создаёт платёж и возвращает ответ шлюза со ссылками для одобрения.
func (c *Client) CreatePayment(ctx context.Context, payment *Payment) (*Payment, error) {
	return c.do(ctx, http.MethodPost, "/v1/payments/payment", payment)
}

// ExecutePayment проводит одобренный пользователем платёж.
func (c *Client) ExecutePayment(ctx context.Context, paymentID, payerID string) (*Payment, error) {
	path := "/v1/payments/payment/" + url.PathEscape(paymentID) + "/execute"
	return c.do(ctx, http.MethodPost, path, map[string]string{"payer_id": payerID})
}

// GetPayment возвращает полную запись платежа по идентификатору.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	return c.do(ctx, http.MethodGet, "/v1/payments/payment/"+url.PathEscape(paymentID), nil)
}
