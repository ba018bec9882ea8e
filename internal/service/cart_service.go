package service

import (
	"context"

	"app/internal/model"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartService applies the cart rules on top of the per-browser repository:
// one selection per plan code, removal by item id, cleared on checkout.
type CartService interface {
	Get(ctx context.Context, browserID string) (*model.Cart, error)
	AddItem(ctx context.Context, browserID string, item model.CartItem) (*model.Cart, error)
	RemoveItem(ctx context.Context, browserID, itemID string) (*model.Cart, error)
	Clear(ctx context.Context, browserID string) error
}

type cartService struct {
	carts  repository.CartRepository
	logger zerolog.Logger
}

func NewCartService(carts repository.CartRepository, logger zerolog.Logger) CartService {
	return &cartService{
		carts:  carts,
		logger: logger.With().Str("service", "CartService").Logger(),
	}
}

func (s *cartService) Get(ctx context.Context, browserID string) (*model.Cart, error) {
	return s.carts.Get(ctx, browserID)
}

// AddItem adds or replaces the selection for the item's plan code. A
// missing item id gets a generated one.
func (s *cartService) AddItem(ctx context.Context, browserID string, item model.CartItem) (*model.Cart, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	cart, err := s.carts.Get(ctx, browserID)
	if err != nil {
		return nil, err
	}
	cart.AddItem(item)
	if err := s.carts.Save(ctx, browserID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, browserID, itemID string) (*model.Cart, error) {
	cart, err := s.carts.Get(ctx, browserID)
	if err != nil {
		return nil, err
	}
	if !cart.RemoveItem(itemID) {
		return nil, newUserError("Cart item not found.")
	}
	if err := s.carts.Save(ctx, browserID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) Clear(ctx context.Context, browserID string) error {
	return s.carts.Delete(ctx, browserID)
}
