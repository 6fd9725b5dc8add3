package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/juani-castore/mozo-prototipo/internal/domain"
)

// memoryProductRepo is an in-memory repo.ProductRepo for unit tests.
type memoryProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]domain.Product
	failOn   map[uuid.UUID]error
}

func newMemoryProductRepo(products ...domain.Product) *memoryProductRepo {
	r := &memoryProductRepo{
		products: make(map[uuid.UUID]domain.Product),
		failOn:   make(map[uuid.UUID]error),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memoryProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := make(map[uuid.UUID]domain.Product)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

func (r *memoryProductRepo) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failOn[productID]; ok {
		return err
	}
	p, ok := r.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock -= quantity
	if p.Stock < 0 {
		p.Stock = 0
	}
	r.products[productID] = p
	return nil
}

func (r *memoryProductRepo) Stock(ctx context.Context, productID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return p.Stock, nil
}

// memoryPendingRepo is an in-memory repo.PendingOrderRepo for unit tests.
type memoryPendingRepo struct {
	mu      sync.Mutex
	pending map[string]domain.PendingOrder
}

func newMemoryPendingRepo() *memoryPendingRepo {
	return &memoryPendingRepo{pending: make(map[string]domain.PendingOrder)}
}

func (r *memoryPendingRepo) Create(ctx context.Context, p *domain.PendingOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[p.CorrelationToken]; exists {
		return errors.New("duplicate correlation token")
	}
	r.pending[p.CorrelationToken] = *p
	return nil
}

func (r *memoryPendingRepo) FindByToken(ctx context.Context, token string) (*domain.PendingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[token]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memoryPendingRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, token)
	return nil
}

func (r *memoryPendingRepo) FindExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PendingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []domain.PendingOrder
	for _, p := range r.pending {
		if p.CreatedAt.Before(cutoff) && len(expired) < limit {
			expired = append(expired, p)
		}
	}
	return expired, nil
}
