package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type seedProduct struct {
	name  string
	price int64
	stock int
}

var defaultProducts = []seedProduct{
	{"Empanada de carne", 1200, 120},
	{"Empanada de jamon y queso", 1200, 120},
	{"Milanesa completa", 5500, 40},
	{"Hamburguesa de la casa", 4800, 60},
	{"Papas fritas", 2500, 80},
	{"Agua sin gas", 1000, 200},
	{"Gaseosa", 1500, 200},
}

// Seed inserts the starter menu. Existing rows (by name) are left untouched,
// so restarting the server never resets stock.
func Seed(ctx context.Context, db *sql.DB) error {
	for _, p := range defaultProducts {
		_, err := db.ExecContext(ctx,
			`INSERT INTO products (id, name, price, stock)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (name) DO NOTHING`,
			uuid.New(), p.name, p.price, p.stock,
		)
		if err != nil {
			return fmt.Errorf("seed product %q: %w", p.name, err)
		}
	}
	return nil
}
