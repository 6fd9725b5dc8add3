package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderAdmitted   OrderStatus = "ADMITTED"
	OrderFulfilling OrderStatus = "FULFILLING"
	OrderReady      OrderStatus = "READY"
	OrderDelivered  OrderStatus = "DELIVERED"
)

// LineItem is a priced snapshot of one cart row. UnitPrice is captured from
// the catalog at checkout-link creation and never re-read from the client.
type LineItem struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
}

type OrderContent struct {
	CustomerName string     `json:"customerName"`
	Email        string     `json:"email"`
	PickupTime   string     `json:"pickupTime"`
	Comments     string     `json:"comments,omitempty"`
	Items        []LineItem `json:"items"`
}

// Total sums the priced line items in centavos.
func (c OrderContent) Total() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.UnitPrice * int64(it.Quantity)
	}
	return total
}

// Order is the durable customer-visible record. PaymentID is unique across
// all orders, OrderNumber is the human-readable counter shown to the customer.
type Order struct {
	ID          uuid.UUID
	OrderNumber int64
	PaymentID   string
	Content     OrderContent
	Total       int64
	Status      OrderStatus
	AdmittedAt  time.Time
}
