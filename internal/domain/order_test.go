package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrderContentTotal(t *testing.T) {
	content := OrderContent{
		Items: []LineItem{
			{ProductID: uuid.New(), Name: "Milanesa", UnitPrice: 5500, Quantity: 1},
			{ProductID: uuid.New(), Name: "Gaseosa", UnitPrice: 1500, Quantity: 2},
		},
	}
	assert.Equal(t, int64(8500), content.Total())
}

func TestOrderContentTotalEmpty(t *testing.T) {
	assert.Zero(t, OrderContent{}.Total())
}
