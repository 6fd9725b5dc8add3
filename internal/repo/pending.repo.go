package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/juani-castore/mozo-prototipo/internal/domain"
)

type PendingOrderRepo interface {
	Create(ctx context.Context, pending *domain.PendingOrder) error
	// FindByToken returns (nil, nil) when the staging record is absent.
	FindByToken(ctx context.Context, token string) (*domain.PendingOrder, error)
	Delete(ctx context.Context, token string) error
	// FindExpiredBefore lists unclaimed pending orders created before cutoff.
	FindExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PendingOrder, error)
}

type pendingOrderRepo struct {
	db *sql.DB
}

func NewPendingOrderRepo(db *sql.DB) PendingOrderRepo {
	return &pendingOrderRepo{db: db}
}

func (r *pendingOrderRepo) Create(ctx context.Context, pending *domain.PendingOrder) error {
	content, err := json.Marshal(pending.Content)
	if err != nil {
		return fmt.Errorf("encode pending content: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO pending_orders (correlation_token, content, created_at) VALUES ($1, $2, $3)`,
		pending.CorrelationToken, content, pending.CreatedAt,
	)
	return err
}

func (r *pendingOrderRepo) FindByToken(ctx context.Context, token string) (*domain.PendingOrder, error) {
	var (
		pending domain.PendingOrder
		content []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT correlation_token, content, created_at FROM pending_orders WHERE correlation_token = $1`,
		token,
	).Scan(&pending.CorrelationToken, &content, &pending.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &pending.Content); err != nil {
		return nil, fmt.Errorf("decode pending content: %w", err)
	}
	return &pending, nil
}

func (r *pendingOrderRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_orders WHERE correlation_token = $1`, token,
	)
	return err
}

func (r *pendingOrderRepo) FindExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PendingOrder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT correlation_token, content, created_at
		 FROM pending_orders WHERE created_at < $1
		 ORDER BY created_at LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.PendingOrder
	for rows.Next() {
		var (
			pending domain.PendingOrder
			content []byte
		)
		if err := rows.Scan(&pending.CorrelationToken, &content, &pending.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(content, &pending.Content); err != nil {
			return nil, fmt.Errorf("decode pending content: %w", err)
		}
		expired = append(expired, pending)
	}
	return expired, rows.Err()
}
