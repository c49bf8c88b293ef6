package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.yookassa.ru/v3"

// APIError is a non-2xx answer from the gateway. RawBody keeps the original
// payload so operators see exactly what the gateway said.
type APIError struct {
	StatusCode  int
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Parameter   string          `json:"parameter"`
	RawBody     json.RawMessage `json:"-"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("yookassa: %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("yookassa: unexpected status %d", e.StatusCode)
}

// Client is a thin REST client for the YooKassa API. Every request is signed
// with shop Basic-Auth; mutating calls carry a fresh Idempotence-Key.
type Client struct {
	shopID     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewClient creates a new YooKassa client.
func NewClient(shopID, secretKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		shopID:     shopID,
		secretKey:  secretKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Ограничиваем исходящий поток запросов к шлюзу
		limiter: rate.NewLimiter(10, 1),
		logger:  logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CreatePayment creates a new payment in YooKassa.
func (c *Client) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*Payment, error) {
	c.logger.Info("Creating payment in YooKassa", "amount", req.Amount.Value)

	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/payments", newIdempotenceKey(), req, &payment); err != nil {
		c.logger.Error("Failed to create payment in YooKassa", "error", err)
		return nil, err
	}

	c.logger.Info("Payment created successfully in YooKassa", "payment_id", payment.ID, "status", payment.Status)
	return &payment, nil
}

// GetPayment fetches the current payment state from YooKassa.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, "", nil, &payment); err != nil {
		c.logger.Error("Failed to get payment from YooKassa", "error", err, "payment_id", paymentID)
		return nil, err
	}

	return &payment, nil
}

// CreateRefund issues a refund against an existing payment.
func (c *Client) CreateRefund(ctx context.Context, req *CreateRefundRequest) (*Refund, error) {
	c.logger.Info("Creating refund in YooKassa", "payment_id", req.PaymentID, "amount", req.Amount.Value)

	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/refunds", newIdempotenceKey(), req, &refund); err != nil {
		c.logger.Error("Failed to create refund in YooKassa", "error", err, "payment_id", req.PaymentID)
		return nil, err
	}

	c.logger.Info("Refund created successfully in YooKassa", "refund_id", refund.ID, "payment_id", req.PaymentID)
	return &refund, nil
}

func (c *Client) do(ctx context.Context, method, path, idempotenceKey string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.SetBasicAuth(c.shopID, c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotenceKey != "" {
		req.Header.Set("Idempotence-Key", idempotenceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RawBody: respBody}
		// Тело ошибки может быть не JSON — тогда оставляем только статус
		_ = json.Unmarshal(respBody, apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

func newIdempotenceKey() string {
	return fmt.Sprintf("%s_%d", uuid.New().String(), time.Now().Unix())
}
