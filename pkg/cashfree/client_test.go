package cashfree

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gitsageai/payments-backend/pkg/config"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		httpClient:  srv.Client(),
		baseURL:     srv.URL,
		appID:       "app_test",
		secretKey:   "secret_test",
		apiVersion:  "2023-08-01",
		environment: sandboxEnv,
		logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func TestNewClient_ValidatesCredentials(t *testing.T) {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	_, err := NewClient(ctx, config.CashfreeConfig{SecretKey: "s"}, logg, nil)
	require.ErrorIs(t, err, errAppIDRequired)

	_, err = NewClient(ctx, config.CashfreeConfig{AppID: "a"}, logg, nil)
	require.ErrorIs(t, err, errSecretKeyRequired)

	_, err = NewClient(ctx, config.CashfreeConfig{AppID: "a", SecretKey: "s", Env: "staging"}, logg, nil)
	require.ErrorIs(t, err, errInvalidEnv)

	c, err := NewClient(ctx, config.CashfreeConfig{AppID: "a", SecretKey: "s"}, logg, nil)
	require.NoError(t, err)
	require.Equal(t, sandboxEnv, c.Environment())
	require.Equal(t, "s", c.SigningSecret())
}

func TestCreateOrder(t *testing.T) {
	var gotReq CreateOrderRequest
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pg/orders", r.URL.Path)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"order_id": "user1234_1700000000000",
			"order_status": "ACTIVE",
			"order_amount": 99,
			"order_currency": "INR",
			"payment_session_id": "session_abc"
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		OrderID:       "user1234_1700000000000",
		OrderAmount:   decimal.NewFromInt(99),
		OrderCurrency: "INR",
		CustomerDetails: CustomerDetails{
			CustomerID:    "user1234",
			CustomerPhone: "9999999999",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "session_abc", order.PaymentSessionID)
	require.Equal(t, "ACTIVE", order.OrderStatus)

	require.Equal(t, "app_test", gotHeaders.Get("x-client-id"))
	require.Equal(t, "secret_test", gotHeaders.Get("x-client-secret"))
	require.Equal(t, "2023-08-01", gotHeaders.Get("x-api-version"))
	require.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	require.Equal(t, "user1234_1700000000000", gotReq.OrderID)
	require.True(t, gotReq.OrderAmount.Equal(decimal.NewFromInt(99)))
}

func TestCreateOrder_MissingSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"order_id": "ord_1", "order_status": "ACTIVE"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreateOrder(context.Background(), CreateOrderRequest{OrderID: "ord_1"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestFetchPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/pg/orders/ord_1/payments", r.URL.Path)
		// cf_payment_id arrives as a number on some API versions.
		_, _ = w.Write([]byte(`[
			{"cf_payment_id": 987654, "order_id": "ord_1", "payment_status": "SUCCESS", "payment_amount": 99},
			{"cf_payment_id": "cfp_2", "order_id": "ord_1", "payment_status": "FAILED", "payment_amount": 99}
		]`))
	}))
	defer srv.Close()

	payments, err := newTestClient(srv).FetchPayments(context.Background(), "ord_1")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	require.Equal(t, "987654", payments[0].CfPaymentID.String())
	require.Equal(t, "SUCCESS", payments[0].PaymentStatus)
	require.Equal(t, "cfp_2", payments[1].CfPaymentID.String())
}

func TestFetchPayments_EmptyOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be called")
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchPayments(context.Background(), "  ")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestAPIErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   pkgerrors.Code
		msg    string
	}{
		{"not found", http.StatusNotFound, `{"message": "order not found", "code": "order_not_found"}`, pkgerrors.CodeNotFound, "order not found"},
		{"bad request", http.StatusBadRequest, `{"message": "order_amount invalid"}`, pkgerrors.CodeValidation, "order_amount invalid"},
		{"server error", http.StatusBadGateway, `not json`, pkgerrors.CodeDependency, "cashfree returned status 502"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).FetchPayments(context.Background(), "ord_1")
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, tc.code, typed.Code())
			require.Contains(t, typed.Error(), tc.msg)
		})
	}
}
