package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/juani-castore/mozo-prototipo/internal/infrastructure/payment"
	"github.com/juani-castore/mozo-prototipo/internal/repo"
	"github.com/juani-castore/mozo-prototipo/internal/service"
)

const sweepBatchSize = 100

// Sweeper reclaims pending orders that were never claimed by a confirmation
// path. Before purging, it asks the provider whether a payment carrying the
// correlation token was approved: if so, the order is admitted through the
// normal idempotent routine instead of being lost.
type Sweeper struct {
	pendingRepo repo.PendingOrderRepo
	gateway     payment.PaymentGateway
	admission   service.AdmissionService
	ttl         time.Duration
	interval    time.Duration
	logger      *zap.Logger
}

func NewSweeper(
	pendingRepo repo.PendingOrderRepo,
	gateway payment.PaymentGateway,
	admission service.AdmissionService,
	ttl time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		pendingRepo: pendingRepo,
		gateway:     gateway,
		admission:   admission,
		ttl:         ttl,
		interval:    interval,
		logger:      logger.Named("sweeper"),
	}
}

func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sweeper_started",
		zap.Duration("ttl", w.ttl),
		zap.Duration("interval", w.interval),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Process(ctx); err != nil {
				w.logger.Error("sweep_failed", zap.Error(err))
			}
		}
	}
}

// Process runs one sweep pass.
func (w *Sweeper) Process(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-w.ttl)
	expired, err := w.pendingRepo.FindExpiredBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return err
	}

	for _, pending := range expired {
		logger := w.logger.With(zap.String("correlation_token", pending.CorrelationToken))

		pmt, err := w.gateway.FindByReference(ctx, pending.CorrelationToken)
		if err != nil {
			logger.Warn("reference_lookup_failed", zap.Error(err))
			continue // keep the record, next sweep retries
		}

		if pmt != nil && pmt.Status == payment.StatusApproved {
			// The customer paid but neither confirmation path made it here.
			logger.Error("expired_pending_has_approved_payment",
				zap.String("payment_id", pmt.ID),
			)
			if _, err := w.admission.Admit(ctx, pmt.ID, pending.CorrelationToken); err != nil {
				logger.Error("late_admission_failed", zap.Error(err))
			}
			// Admission deletes the staging record on success.
			continue
		}

		if err := w.pendingRepo.Delete(ctx, pending.CorrelationToken); err != nil {
			logger.Warn("pending_purge_failed", zap.Error(err))
			continue
		}
		logger.Info("pending_purged", zap.Time("created_at", pending.CreatedAt))
	}
	return nil
}
