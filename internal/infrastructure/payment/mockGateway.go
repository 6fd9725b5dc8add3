package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockGateway is an in-memory stand-in for the hosted checkout, used in tests
// and when no provider token is configured.
type MockGateway struct {
	mu       sync.RWMutex
	payments map[string]Payment
	err      error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{payments: make(map[string]Payment)}
}

// SetPayment registers a payment the mock will report.
func (g *MockGateway) SetPayment(p Payment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[p.ID] = p
}

// FailWith makes every call return err until reset with FailWith(nil).
func (g *MockGateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *MockGateway) CreatePreference(ctx context.Context, pref Preference) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	// Simulate the customer paying: an approved payment carrying the
	// correlation token shows up on the provider side.
	var total int64
	for _, it := range pref.Items {
		total += it.UnitPrice * int64(it.Quantity)
	}
	id := uuid.NewString()
	g.payments[id] = Payment{
		ID:                id,
		Status:            StatusApproved,
		ExternalReference: pref.ExternalReference,
		TransactionAmount: total,
	}
	return fmt.Sprintf("https://checkout.invalid/init/%s", id), nil
}

func (g *MockGateway) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.err != nil {
		return nil, g.err
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return &p, nil
}

func (g *MockGateway) FindByReference(ctx context.Context, externalReference string) (*Payment, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.err != nil {
		return nil, g.err
	}
	for _, p := range g.payments {
		if p.ExternalReference == externalReference {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}
