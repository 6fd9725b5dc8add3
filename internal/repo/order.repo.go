package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/juani-castore/mozo-prototipo/internal/domain"
)

type OrderRepo interface {
	// FindByPaymentID returns (nil, nil) when no order exists for the payment.
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	// FindByPaymentIDTx is the same lookup inside the admission transaction,
	// re-checking the winner under the transaction's snapshot.
	FindByPaymentIDTx(ctx context.Context, tx *sql.Tx, paymentID string) (*domain.Order, error)
	// NextOrderNumber bumps the single-row counter and returns the new value.
	// The row lock taken by the UPDATE serializes concurrent admissions; a
	// rollback returns the number, so aborted attempts inside the same
	// transaction waste nothing.
	NextOrderNumber(ctx context.Context, tx *sql.Tx) (int64, error)
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	// LastAssigned reads the counter without bumping it.
	LastAssigned(ctx context.Context) (int64, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const findOrderByPaymentQuery = `
	SELECT id, order_number, payment_id, content, total, status, admitted_at
	FROM orders WHERE payment_id = $1
`

func (r *orderRepo) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx, findOrderByPaymentQuery, paymentID))
}

func (r *orderRepo) FindByPaymentIDTx(ctx context.Context, tx *sql.Tx, paymentID string) (*domain.Order, error) {
	return scanOrder(tx.QueryRowContext(ctx, findOrderByPaymentQuery, paymentID))
}

func scanOrder(row *sql.Row) (*domain.Order, error) {
	var (
		order   domain.Order
		content []byte
	)
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.PaymentID,
		&content,
		&order.Total,
		&order.Status,
		&order.AdmittedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &order.Content); err != nil {
		return nil, fmt.Errorf("decode order content: %w", err)
	}
	return &order, nil
}

func (r *orderRepo) NextOrderNumber(ctx context.Context, tx *sql.Tx) (int64, error) {
	// Lazy init on first admission ever.
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_sequence (id, last_assigned) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`,
	)
	if err != nil {
		return 0, err
	}

	var next int64
	err = tx.QueryRowContext(ctx,
		`UPDATE order_sequence SET last_assigned = last_assigned + 1 WHERE id = 1 RETURNING last_assigned`,
	).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	content, err := json.Marshal(order.Content)
	if err != nil {
		return fmt.Errorf("encode order content: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, payment_id, content, total, status, admitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		order.ID, order.OrderNumber, order.PaymentID, content, order.Total, order.Status, order.AdmittedAt,
	)
	return err
}

func (r *orderRepo) LastAssigned(ctx context.Context) (int64, error) {
	var last int64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_assigned FROM order_sequence WHERE id = 1`,
	).Scan(&last)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last, nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsSerializationFailure reports whether err is a Postgres serialization
// failure or deadlock (SQLSTATE 40001/40P01), both safe to retry.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}
