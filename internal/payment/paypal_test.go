package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paypalAPI serves the OAuth token, Orders v2 and capture refund endpoints.
type paypalAPI struct {
	mu       sync.Mutex
	capture  string
	order    string
	created  map[string]interface{}
	refunded []string
}

func (a *paypalAPI) handler() http.Handler {
	reply := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"access_token":"token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.mu.Lock()
		a.created = body
		a.mu.Unlock()
		reply(w, `{"id":"ORDER-1","status":"CREATED","links":[
			{"href":"https://api.paypal.test/v2/checkout/orders/ORDER-1","rel":"self","method":"GET"},
			{"href":"https://paypal.test/checkoutnow?token=ORDER-1","rel":"approve","method":"GET"}]}`)
	})
	mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		body := a.capture
		a.mu.Unlock()
		reply(w, body)
	})
	mux.HandleFunc("GET /v2/checkout/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		body := a.order
		a.mu.Unlock()
		reply(w, body)
	})
	mux.HandleFunc("POST /v2/payments/captures/{id}/refund", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.refunded = append(a.refunded, r.PathValue("id"))
		a.mu.Unlock()
		reply(w, `{"id":"REFUND-1","status":"COMPLETED"}`)
	})
	return mux
}

func newTestPayPal(t *testing.T, api *paypalAPI) *PayPal {
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	p, err := newPayPal("client", "secret", srv.URL)
	require.NoError(t, err)
	return p
}

func TestPayPalCreatePaymentReturnsApprovalURL(t *testing.T) {
	api := &paypalAPI{}
	p := newTestPayPal(t, api)

	session, err := p.CreatePayment(context.Background(), Intent{
		Amount:    decimal.RequireFromString("42.5"),
		Currency:  "eur",
		UserID:    7,
		ReturnURL: "https://shop.example/checkout/success",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", session.PaymentID)
	assert.Equal(t, "https://paypal.test/checkoutnow?token=ORDER-1", session.ApprovalURL)

	api.mu.Lock()
	defer api.mu.Unlock()
	units, ok := api.created["purchase_units"].([]interface{})
	require.True(t, ok)
	require.Len(t, units, 1)
	unit := units[0].(map[string]interface{})
	assert.Equal(t, "7", unit["custom_id"])
	amount := unit["amount"].(map[string]interface{})
	assert.Equal(t, "EUR", amount["currency_code"])
	assert.Equal(t, "42.50", amount["value"])
}

func TestPayPalCapture(t *testing.T) {
	tests := []struct {
		name     string
		capture  string
		wantErr  bool
		amount   string
		currency string
		userID   uint
	}{
		{
			name: "sums every capture",
			capture: `{"id":"ORDER-1","status":"COMPLETED","purchase_units":[
				{"reference_id":"default","payments":{"captures":[
					{"id":"CAP-1","status":"COMPLETED","custom_id":"7","amount":{"currency_code":"EUR","value":"30.00"}},
					{"id":"CAP-2","status":"COMPLETED","custom_id":"7","amount":{"currency_code":"EUR","value":"12.50"}}]}}]}`,
			amount:   "42.50",
			currency: "EUR",
			userID:   7,
		},
		{
			name:    "payer action pending",
			capture: `{"id":"ORDER-1","status":"PAYER_ACTION_REQUIRED"}`,
			wantErr: true,
		},
		{
			name: "unparseable amount",
			capture: `{"id":"ORDER-1","status":"COMPLETED","purchase_units":[
				{"reference_id":"default","payments":{"captures":[
					{"id":"CAP-1","amount":{"currency_code":"EUR","value":"n/a"}}]}}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPayPal(t, &paypalAPI{capture: tt.capture})

			got, err := p.Capture(context.Background(), "ORDER-1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ORDER-1", got.PaymentID)
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(got.Amount), "amount %s", got.Amount)
			assert.Equal(t, tt.currency, got.Currency)
			assert.Equal(t, tt.userID, got.UserID)
		})
	}
}

func TestPayPalRefundsEveryCapture(t *testing.T) {
	api := &paypalAPI{order: `{"id":"ORDER-1","status":"COMPLETED","purchase_units":[
		{"reference_id":"a","payments":{"captures":[{"id":"CAP-1"},{"id":"CAP-2"}]}},
		{"reference_id":"b"}]}`}
	p := newTestPayPal(t, api)

	require.NoError(t, p.Refund(context.Background(), "ORDER-1"))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"CAP-1", "CAP-2"}, api.refunded)
}
