package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/juani-castore/mozo-prototipo/internal/domain"
)

type ProductRepo interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error)
	// DecrementStock subtracts quantity from the product's stock, clamping the
	// result at zero. Returns domain.ErrProductNotFound when the product row
	// no longer exists.
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	Stock(ctx context.Context, productID uuid.UUID) (int, error)
}

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	products := make(map[uuid.UUID]domain.Product, len(ids))
	for _, id := range ids {
		if _, ok := products[id]; ok {
			continue
		}
		var p domain.Product
		err := r.db.QueryRowContext(ctx,
			`SELECT id, name, price, stock FROM products WHERE id = $1`, id,
		).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
		if err == sql.ErrNoRows {
			continue // absence reported by the caller
		}
		if err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, nil
}

func (r *productRepo) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	tag, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = GREATEST(stock - $2, 0) WHERE id = $1`,
		productID, quantity,
	)
	if err != nil {
		return err
	}
	affected, err := tag.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return nil
}

func (r *productRepo) Stock(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	err := r.db.QueryRowContext(ctx,
		`SELECT stock FROM products WHERE id = $1`, productID,
	).Scan(&stock)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}
