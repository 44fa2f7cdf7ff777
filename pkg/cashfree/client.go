package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gitsageai/payments-backend/pkg/config"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
	"github.com/gitsageai/payments-backend/pkg/metrics"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAppIDRequired     = errors.New("cashfree app id is required")
	errSecretKeyRequired = errors.New("cashfree secret key is required")
	errInvalidEnv        = fmt.Errorf("cashfree environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired    = errors.New("cashfree logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://sandbox.cashfree.com",
	productionEnv: "https://api.cashfree.com",
}

// Client wraps the Cashfree PG REST API with centralized auth, logging, and
// error mapping. Cashfree publishes no Go SDK, so this is a plain HTTP
// wrapper around the two operations the platform needs.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	appID       string
	secretKey   string
	apiVersion  string
	environment string
	logger      *logger.Logger
	metrics     *metrics.PaymentMetrics
}

// NewClient initializes the Cashfree wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.CashfreeConfig, logg *logger.Logger, pm *metrics.PaymentMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	appID := strings.TrimSpace(cfg.AppID)
	if appID == "" {
		return nil, errAppIDRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURLs[env],
		appID:       appID,
		secretKey:   secretKey,
		apiVersion:  cfg.APIVersion,
		environment: env,
		logger:      logg,
		metrics:     pm,
	}

	logg.Info(ctx, "cashfree client initialized")
	return c, nil
}

// Environment reports the normalized Cashfree environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the secret used for webhook signature verification.
// Cashfree signs webhooks with the same client secret used for API auth.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.secretKey
}

// CreateOrder creates a hosted checkout order and returns the payment session
// the client SDK redirects into.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderEntity, error) {
	c.log(ctx, "request", "create_order", map[string]any{
		"order_id":     req.OrderID,
		"order_amount": req.OrderAmount.String(),
		"currency":     req.OrderCurrency,
	})

	var order OrderEntity
	if err := c.do(ctx, http.MethodPost, "/pg/orders", req, &order, "create_order"); err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, err
	}

	if order.PaymentSessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cashfree order missing payment session id")
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"order_id":     order.OrderID,
		"order_status": order.OrderStatus,
	})
	return &order, nil
}

// FetchPayments lists the payment attempts recorded against an order.
func (c *Client) FetchPayments(ctx context.Context, orderID string) ([]Payment, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	c.log(ctx, "request", "fetch_payments", map[string]any{"order_id": orderID})

	var payments []Payment
	path := fmt.Sprintf("/pg/orders/%s/payments", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &payments, "fetch_payments"); err != nil {
		c.log(ctx, "error", "fetch_payments", map[string]any{"order_id": orderID, "error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "fetch_payments", map[string]any{
		"order_id": orderID,
		"count":    len(payments),
	})
	return payments, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any, operation string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cashfree request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cashfree request")
	}
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secretKey)
	req.Header.Set("x-api-version", c.apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveProviderDuration(operation, time.Since(start))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call cashfree")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cashfree response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapAPIError(resp.StatusCode, raw)
	}

	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode cashfree response")
		}
	}
	return nil
}

func (c *Client) mapAPIError(status int, raw []byte) error {
	var apiErr struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Type    string `json:"type"`
	}
	_ = json.Unmarshal(raw, &apiErr)

	msg := strings.TrimSpace(apiErr.Message)
	if msg == "" {
		msg = fmt.Sprintf("cashfree returned status %d", status)
	}

	code := pkgerrors.CodeDependency
	switch {
	case status == http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case status >= 400 && status < 500:
		code = pkgerrors.CodeValidation
	}
	return pkgerrors.New(code, msg).WithDetails(map[string]any{
		"provider_code": apiErr.Code,
		"http_status":   status,
	})
}

func (c *Client) log(ctx context.Context, phase, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	merged := map[string]any{"provider": "cashfree", "operation": operation, "phase": phase}
	for k, v := range fields {
		merged[k] = v
	}
	ctx = c.logger.WithFields(ctx, merged)
	c.logger.Info(ctx, "cashfree."+operation)
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidEnv
	}
}
