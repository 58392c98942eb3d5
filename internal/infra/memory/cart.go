package memory

import (
	"context"
	"sync"

	"storefront/internal/domain/model"
)

// CartStore はREDIS_ADDR未設定時のカート置き場（TTLなし）。
type CartStore struct {
	mu    sync.Mutex
	carts map[string]model.Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: map[string]model.Cart{}}
}

func (s *CartStore) Get(ctx context.Context, key string) (model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[key]
	if !ok {
		return model.Cart{Key: key, Lines: []model.CartLine{}}, nil
	}
	c.Lines = append([]model.CartLine{}, c.Lines...)
	return c, nil
}

func (s *CartStore) Save(ctx context.Context, cart model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart.Lines = append([]model.CartLine{}, cart.Lines...)
	s.carts[cart.Key] = cart
	return nil
}

func (s *CartStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, key)
	return nil
}
