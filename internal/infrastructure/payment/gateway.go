package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Status string

const (
	StatusApproved   Status = "approved"
	StatusPending    Status = "pending"
	StatusInProcess  Status = "in_process"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusChargeback Status = "charged_back"
)

var (
	// ErrUnavailable means the provider could not be reached or answered with
	// a server error after retries. Nothing can be concluded about the payment.
	ErrUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentNotFound means the provider does not know this payment id.
	ErrPaymentNotFound = errors.New("payment not found")
)

// Payment is the provider's view of a payment. ExternalReference carries the
// correlation token set at preference creation, which is how the webhook path
// finds its way back to the staged order content.
type Payment struct {
	ID                string
	Status            Status
	ExternalReference string
	TransactionAmount int64
}

type PreferenceItem struct {
	Title     string
	Quantity  int
	UnitPrice int64
}

type Preference struct {
	Items             []PreferenceItem
	ExternalReference string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
	NotificationURL   string
}

type PaymentGateway interface {
	// CreatePreference registers a hosted-checkout session and returns the
	// URL the customer is redirected to.
	CreatePreference(ctx context.Context, pref Preference) (string, error)
	// GetPayment queries a payment by the provider's identifier. Safe to
	// repeat any number of times.
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	// FindByReference returns the most recent payment carrying the given
	// external reference, or (nil, nil) when the provider has none.
	FindByReference(ctx context.Context, externalReference string) (*Payment, error)
}

type mercadoPagoGateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
}

func NewMercadoPagoGateway(baseURL, token string, timeout time.Duration) PaymentGateway {
	return &mercadoPagoGateway{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

type mpPaymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
}

func (g *mercadoPagoGateway) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var resp mpPaymentResponse
	endpoint := fmt.Sprintf("%s/v1/payments/%s", g.baseURL, url.PathEscape(paymentID))
	if err := g.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return toPayment(resp), nil
}

func (g *mercadoPagoGateway) FindByReference(ctx context.Context, externalReference string) (*Payment, error) {
	var resp struct {
		Results []mpPaymentResponse `json:"results"`
	}
	endpoint := fmt.Sprintf("%s/v1/payments/search?sort=date_created&criteria=desc&external_reference=%s",
		g.baseURL, url.QueryEscape(externalReference))
	if err := g.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return toPayment(resp.Results[0]), nil
}

func (g *mercadoPagoGateway) CreatePreference(ctx context.Context, pref Preference) (string, error) {
	items := make([]map[string]any, 0, len(pref.Items))
	for _, it := range pref.Items {
		items = append(items, map[string]any{
			"title":       it.Title,
			"quantity":    it.Quantity,
			"unit_price":  float64(it.UnitPrice) / 100,
			"currency_id": "ARS",
		})
	}
	body := map[string]any{
		"items":              items,
		"external_reference": pref.ExternalReference,
		"back_urls": map[string]string{
			"success": pref.SuccessURL,
			"failure": pref.FailureURL,
			"pending": pref.PendingURL,
		},
		"auto_return":      "approved",
		"notification_url": pref.NotificationURL,
	}

	var resp struct {
		InitPoint string `json:"init_point"`
	}
	endpoint := g.baseURL + "/checkout/preferences"
	if err := g.doJSON(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return "", err
	}
	if resp.InitPoint == "" {
		return "", fmt.Errorf("%w: preference response missing init_point", ErrUnavailable)
	}
	return resp.InitPoint, nil
}

// doJSON performs one API call with bounded exponential retry. Server errors
// and transport failures are retried; 4xx responses are terminal.
func (g *mercadoPagoGateway) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		var reader io.Reader
		if body != nil {
			encoded, err := json.Marshal(body)
			if err != nil {
				return backoff.Permanent(err)
			}
			reader = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(attemptCtx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+g.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrPaymentNotFound)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("gateway rejected request: status %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx,
	)
	return backoff.Retry(operation, policy)
}

func toPayment(resp mpPaymentResponse) *Payment {
	return &Payment{
		ID:                resp.ID.String(),
		Status:            Status(resp.Status),
		ExternalReference: resp.ExternalReference,
		TransactionAmount: int64(math.Round(resp.TransactionAmount * 100)),
	}
}
