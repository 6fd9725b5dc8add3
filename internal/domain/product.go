package domain

import "github.com/google/uuid"

// Product is a catalog entry. Price is in centavos, stock is clamped at zero
// on decrement.
type Product struct {
	ID    uuid.UUID
	Name  string
	Price int64
	Stock int
}
