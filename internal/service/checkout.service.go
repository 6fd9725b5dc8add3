package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juani-castore/mozo-prototipo/internal/domain"
	"github.com/juani-castore/mozo-prototipo/internal/infrastructure/payment"
	"github.com/juani-castore/mozo-prototipo/internal/metrics"
	"github.com/juani-castore/mozo-prototipo/internal/repo"
)

type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type CustomerInfo struct {
	Name       string
	Email      string
	PickupTime string
	Comments   string
}

type CheckoutResult struct {
	CheckoutURL      string
	CorrelationToken string
}

// CheckoutService validates and prices the cart once, stages the pending
// order under the correlation token, and creates the hosted checkout session
// with that token as the provider-side reference. The token may be minted by
// the storefront before calling; when absent one is generated here.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, correlationToken string, customer CustomerInfo, cart []CartItem) (*CheckoutResult, error)
}

type checkoutService struct {
	productRepo repo.ProductRepo
	pendingRepo repo.PendingOrderRepo
	gateway     payment.PaymentGateway
	baseURL     string
	notifyURL   string
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewCheckoutService(
	productRepo repo.ProductRepo,
	pendingRepo repo.PendingOrderRepo,
	gateway payment.PaymentGateway,
	storefrontBaseURL string,
	notificationURL string,
	m *metrics.Metrics,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		productRepo: productRepo,
		pendingRepo: pendingRepo,
		gateway:     gateway,
		baseURL:     storefrontBaseURL,
		notifyURL:   notificationURL,
		metrics:     m,
		logger:      logger.Named("checkout"),
	}
}

func (s *checkoutService) CreateCheckout(ctx context.Context, correlationToken string, customer CustomerInfo, cart []CartItem) (*CheckoutResult, error) {
	content, err := s.priceCart(ctx, customer, cart)
	if err != nil {
		s.metrics.CheckoutLink("invalid")
		return nil, err
	}

	token := correlationToken
	if token == "" {
		token = uuid.NewString()
	}
	pending := &domain.PendingOrder{
		CorrelationToken: token,
		Content:          *content,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.pendingRepo.Create(ctx, pending); err != nil {
		s.metrics.CheckoutLink("error")
		return nil, fmt.Errorf("stage pending order: %w", err)
	}

	items := make([]payment.PreferenceItem, 0, len(content.Items))
	for _, it := range content.Items {
		items = append(items, payment.PreferenceItem{
			Title:     it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	checkoutURL, err := s.gateway.CreatePreference(ctx, payment.Preference{
		Items:             items,
		ExternalReference: token,
		SuccessURL:        s.baseURL + "/order-confirmation",
		FailureURL:        s.baseURL + "/payment-failed",
		PendingURL:        s.baseURL + "/payment-pending",
		NotificationURL:   s.notifyURL,
	})
	if err != nil {
		// Unclaimed staging records are reclaimed by the sweeper; no need to
		// roll back here.
		s.metrics.CheckoutLink("error")
		return nil, fmt.Errorf("create checkout preference: %w", err)
	}

	s.logger.Info("checkout_link_created",
		zap.String("correlation_token", token),
		zap.Int64("total", content.Total()),
	)
	s.metrics.CheckoutLink("created")
	return &CheckoutResult{CheckoutURL: checkoutURL, CorrelationToken: token}, nil
}

// priceCart resolves every cart row against the catalog, snapshotting names
// and unit prices server-side. Client-supplied prices are never trusted.
func (s *checkoutService) priceCart(ctx context.Context, customer CustomerInfo, cart []CartItem) (*domain.OrderContent, error) {
	if len(cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	ids := make([]uuid.UUID, 0, len(cart))
	for _, row := range cart {
		if row.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", domain.ErrInvalidQuantity, row.ProductID)
		}
		ids = append(ids, row.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]domain.LineItem, 0, len(cart))
	for _, row := range cart {
		p, ok := products[row.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, row.ProductID)
		}
		items = append(items, domain.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  row.Quantity,
		})
	}

	return &domain.OrderContent{
		CustomerName: customer.Name,
		Email:        customer.Email,
		PickupTime:   customer.PickupTime,
		Comments:     customer.Comments,
		Items:        items,
	}, nil
}
