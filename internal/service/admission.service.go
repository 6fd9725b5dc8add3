package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juani-castore/mozo-prototipo/internal/domain"
	"github.com/juani-castore/mozo-prototipo/internal/infrastructure/payment"
	"github.com/juani-castore/mozo-prototipo/internal/metrics"
	"github.com/juani-castore/mozo-prototipo/internal/repo"
)

// maxAdmitAttempts bounds internal retries of the atomic step. Contention is
// only possible while two callers race for the same payment, so a couple of
// attempts always converge.
const maxAdmitAttempts = 3

// AdmissionService turns an approved payment into exactly one durable order.
// Admit is idempotent: it is safe to call any number of times, concurrently
// or sequentially, for the same payment identifier.
type AdmissionService interface {
	Admit(ctx context.Context, paymentID, correlationToken string) (int64, error)
}

type admissionService struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	pendingRepo repo.PendingOrderRepo
	gateway     payment.PaymentGateway
	inventory   InventoryService
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewAdmissionService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	pendingRepo repo.PendingOrderRepo,
	gateway payment.PaymentGateway,
	inventory InventoryService,
	m *metrics.Metrics,
	logger *zap.Logger,
) AdmissionService {
	return &admissionService{
		db:          db,
		orderRepo:   orderRepo,
		pendingRepo: pendingRepo,
		gateway:     gateway,
		inventory:   inventory,
		metrics:     m,
		logger:      logger.Named("admission"),
	}
}

// Admit runs the admission algorithm: verify the payment with the provider,
// return the existing order number if one was already admitted, resolve the
// staged content, then insert the order and bump the sequence in one
// transaction. The unique index on orders.payment_id arbitrates races; a
// loser rolls back (undoing its sequence increment) and returns the winner's
// number.
func (s *admissionService) Admit(ctx context.Context, paymentID, correlationToken string) (int64, error) {
	logger := s.logger.With(zap.String("payment_id", paymentID))

	pmt, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			s.metrics.Admission("not_approved")
			return 0, fmt.Errorf("%w: unknown payment %s", domain.ErrPaymentNotApproved, paymentID)
		}
		s.metrics.Admission("provider_unavailable")
		return 0, fmt.Errorf("%w: %v", domain.ErrPaymentProviderUnavailable, err)
	}
	if pmt.Status != payment.StatusApproved {
		s.metrics.Admission("not_approved")
		return 0, fmt.Errorf("%w: status %s", domain.ErrPaymentNotApproved, pmt.Status)
	}

	// The webhook path has no token of its own; recover it from the
	// reference echoed back by the provider.
	if correlationToken == "" {
		correlationToken = pmt.ExternalReference
	}

	// Fast path: a concurrent or earlier caller already admitted this payment.
	if existing, err := s.orderRepo.FindByPaymentID(ctx, paymentID); err != nil {
		return 0, fmt.Errorf("lookup order: %w", err)
	} else if existing != nil {
		logger.Info("admission_replayed", zap.Int64("order_number", existing.OrderNumber))
		s.metrics.Admission("replayed")
		return existing.OrderNumber, nil
	}

	pending, err := s.pendingRepo.FindByToken(ctx, correlationToken)
	if err != nil {
		return 0, fmt.Errorf("lookup pending order: %w", err)
	}
	if pending == nil {
		// The winner may have claimed and deleted the staging record between
		// the fast path and here.
		if existing, err := s.orderRepo.FindByPaymentID(ctx, paymentID); err != nil {
			return 0, fmt.Errorf("lookup order: %w", err)
		} else if existing != nil {
			s.metrics.Admission("replayed")
			return existing.OrderNumber, nil
		}
		logger.Error("order_content_missing", zap.String("correlation_token", correlationToken))
		s.metrics.Admission("content_missing")
		return 0, fmt.Errorf("%w: token %s", domain.ErrOrderContentMissing, correlationToken)
	}

	var (
		order   *domain.Order
		created bool
	)
	for attempt := 1; ; attempt++ {
		order, created, err = s.admitOnce(ctx, paymentID, pending)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrSequenceContention) && attempt < maxAdmitAttempts {
			logger.Warn("admission_retry", zap.Int("attempt", attempt))
			continue
		}
		s.metrics.Admission("error")
		return 0, err
	}

	if created {
		logger.Info("order_admitted",
			zap.Int64("order_number", order.OrderNumber),
			zap.Int64("total", order.Total),
		)
		s.metrics.Admission("admitted")

		// Best-effort cleanup; the order is durable regardless.
		if err := s.pendingRepo.Delete(ctx, correlationToken); err != nil {
			logger.Warn("pending_cleanup_failed", zap.Error(err))
		}

		// Fire-and-forget stock decrement, detached from the request context.
		items := order.Content.Items
		go func() {
			decCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.inventory.Decrement(decCtx, items)
		}()
	} else {
		logger.Info("admission_lost_race", zap.Int64("order_number", order.OrderNumber))
		s.metrics.Admission("replayed")
	}

	return order.OrderNumber, nil
}

// admitOnce performs the atomic unit: re-check, bump the sequence, insert.
// Returns created=false with the winner's order when another caller got there
// first.
func (s *admissionService) admitOnce(ctx context.Context, paymentID string, pending *domain.PendingOrder) (*domain.Order, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin admission tx: %w", err)
	}
	defer tx.Rollback()

	// Re-check inside the transaction: guards the window between the fast
	// path and here without consuming a sequence value on a detected race.
	if existing, err := s.orderRepo.FindByPaymentIDTx(ctx, tx, paymentID); err != nil {
		return nil, false, fmt.Errorf("recheck order: %w", err)
	} else if existing != nil {
		return existing, false, nil
	}

	number, err := s.orderRepo.NextOrderNumber(ctx, tx)
	if err != nil {
		if repo.IsSerializationFailure(err) {
			return nil, false, domain.ErrSequenceContention
		}
		return nil, false, fmt.Errorf("next order number: %w", err)
	}

	order := &domain.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		PaymentID:   paymentID,
		Content:     pending.Content,
		Total:       pending.Content.Total(),
		Status:      domain.OrderAdmitted,
		AdmittedAt:  time.Now().UTC(),
	}

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		if repo.IsUniqueViolation(err) {
			// Lost the race: roll back (returning the sequence value) and
			// surface the winner.
			_ = tx.Rollback()
			winner, lookupErr := s.orderRepo.FindByPaymentID(ctx, paymentID)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("lookup winner: %w", lookupErr)
			}
			if winner == nil {
				// Winner not visible yet; let the caller retry.
				return nil, false, domain.ErrSequenceContention
			}
			return winner, false, nil
		}
		if repo.IsSerializationFailure(err) {
			return nil, false, domain.ErrSequenceContention
		}
		return nil, false, fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if repo.IsSerializationFailure(err) || repo.IsUniqueViolation(err) {
			return nil, false, domain.ErrSequenceContention
		}
		return nil, false, fmt.Errorf("commit admission: %w", err)
	}
	return order, true, nil
}
