package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juani-castore/mozo-prototipo/internal/domain"
	"github.com/juani-castore/mozo-prototipo/internal/service"
)

type stubAdmission struct {
	number       int64
	err          error
	calls        int
	gotPaymentID string
	gotToken     string
}

func (s *stubAdmission) Admit(ctx context.Context, paymentID, correlationToken string) (int64, error) {
	s.calls++
	s.gotPaymentID = paymentID
	s.gotToken = correlationToken
	return s.number, s.err
}

type stubCheckout struct {
	result *service.CheckoutResult
	err    error
}

func (s *stubCheckout) CreateCheckout(ctx context.Context, token string, customer service.CustomerInfo, cart []service.CartItem) (*service.CheckoutResult, error) {
	return s.result, s.err
}

type stubHealth struct{}

func (stubHealth) Health(ctx context.Context) map[string]string {
	return map[string]string{"status": "up"}
}
func (stubHealth) Close() error { return nil }

func newTestServer(admission *stubAdmission, checkout *stubCheckout) *Server {
	gin.SetMode(gin.TestMode)
	return New(admission, checkout, stubHealth{}, []string{"http://storefront.test"}, zap.NewNop())
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestConfirmPaymentReturnsOrderNumber(t *testing.T) {
	admission := &stubAdmission{number: 42}
	s := newTestServer(admission, &stubCheckout{})

	rec := doRequest(s, http.MethodPost, "/confirm-payment",
		`{"paymentId":"pay_1","correlationToken":"tok-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orderNumber":42}`, rec.Body.String())
	assert.Equal(t, "pay_1", admission.gotPaymentID)
	assert.Equal(t, "tok-1", admission.gotToken)
}

func TestConfirmPaymentRequiresPaymentID(t *testing.T) {
	admission := &stubAdmission{}
	s := newTestServer(admission, &stubCheckout{})

	rec := doRequest(s, http.MethodPost, "/confirm-payment", `{"correlationToken":"tok-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, admission.calls)
}

func TestConfirmPaymentErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"not approved", domain.ErrPaymentNotApproved, http.StatusPaymentRequired, "PaymentNotApproved"},
		{"content missing", domain.ErrOrderContentMissing, http.StatusNotFound, "OrderContentMissing"},
		{"provider down", domain.ErrPaymentProviderUnavailable, http.StatusServiceUnavailable, "PaymentProviderUnavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&stubAdmission{err: tc.err}, &stubCheckout{})
			rec := doRequest(s, http.MethodPost, "/confirm-payment", `{"paymentId":"pay_1"}`)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantKind)
		})
	}
}

func TestWebhookAdmitsPayment(t *testing.T) {
	admission := &stubAdmission{number: 7}
	s := newTestServer(admission, &stubCheckout{})

	// data.id arrives as a bare number from the provider.
	rec := doRequest(s, http.MethodPost, "/payment-webhook",
		`{"type":"payment","action":"payment.updated","data":{"id":4242}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4242", admission.gotPaymentID)
	assert.Empty(t, admission.gotToken, "webhook path has no token of its own")
}

func TestWebhookIgnoresNonPaymentEvents(t *testing.T) {
	admission := &stubAdmission{}
	s := newTestServer(admission, &stubCheckout{})

	rec := doRequest(s, http.MethodPost, "/payment-webhook",
		`{"type":"merchant_order","data":{"id":1}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, admission.calls)
}

func TestWebhookAcknowledgesTerminalOutcomes(t *testing.T) {
	for _, err := range []error{domain.ErrPaymentNotApproved, domain.ErrOrderContentMissing} {
		s := newTestServer(&stubAdmission{err: err}, &stubCheckout{})
		rec := doRequest(s, http.MethodPost, "/payment-webhook",
			`{"type":"payment","data":{"id":"1"}}`)

		assert.Equal(t, http.StatusOK, rec.Code, "terminal outcome %v must not trigger provider retries", err)
	}
}

func TestWebhookSignalsTransientFailure(t *testing.T) {
	s := newTestServer(&stubAdmission{err: domain.ErrPaymentProviderUnavailable}, &stubCheckout{})
	rec := doRequest(s, http.MethodPost, "/payment-webhook",
		`{"type":"payment","data":{"id":"1"}}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateCheckoutReturnsLink(t *testing.T) {
	s := newTestServer(&stubAdmission{}, &stubCheckout{
		result: &service.CheckoutResult{
			CheckoutURL:      "https://checkout.test/start",
			CorrelationToken: "tok-9",
		},
	})

	rec := doRequest(s, http.MethodPost, "/create-checkout",
		`{"customerInfo":{"name":"Ana"},"cart":[{"productId":"6a1f0e9e-55aa-4ba8-9df5-6f1b9e9b3c7d","quantity":2}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"checkoutUrl":"https://checkout.test/start","correlationToken":"tok-9"}`,
		rec.Body.String())
}

func TestCreateCheckoutRejectsInvalidCart(t *testing.T) {
	s := newTestServer(&stubAdmission{}, &stubCheckout{err: domain.ErrEmptyCart})

	rec := doRequest(s, http.MethodPost, "/create-checkout",
		`{"customerInfo":{"name":"Ana"},"cart":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "InvalidCart")
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&stubAdmission{}, &stubCheckout{})
	rec := doRequest(s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)
}
