package services

import (
	"context"
	"errors"
	"log/slog"

	"storefront/cache"
	"storefront/database"
	"storefront/models"
	"storefront/utils"
)

type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	AddToCart(ctx context.Context, userID string, line models.NewCartLine, expectedVersion *int64) (*models.Cart, error)
	UpdateCartItemQuantity(ctx context.Context, userID string, itemID int64, quantity int, expectedVersion *int64) (*models.Cart, error)
	ClearUserCart(ctx context.Context, userID string, expectedVersion *int64) (*models.Cart, error)
}

// CartService runs the cart RPCs. Every mutation returns the cart state read
// in the same transaction as the write.
type CartService struct {
	repo  CartRepository
	cache cache.CartCache
}

func NewCartService(repo CartRepository, c cache.CartCache) *CartService {
	if c == nil {
		c = cache.NopCartCache{}
	}
	return &CartService{repo: repo, cache: c}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	cart, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("cart cache read failed", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
			slog.String(utils.LogKeyUserID, userID), slog.String(utils.LogKeyError, err.Error()))
	}

	cart, err = s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.remember(ctx, cart)
	return cart, nil
}

func (s *CartService) AddToCart(ctx context.Context, userID string, line models.NewCartLine, expectedVersion *int64) (*models.Cart, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if err := validateStruct(line); err != nil {
		return nil, err
	}

	cart, err := s.repo.AddToCart(ctx, userID, line, expectedVersion)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.refresh(ctx, cart)
	return cart, nil
}

// UpdateCartItemQuantity sets a line's quantity; 0 removes the line.
func (s *CartService) UpdateCartItemQuantity(ctx context.Context, userID string, itemID int64, quantity int, expectedVersion *int64) (*models.Cart, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if itemID <= 0 {
		return nil, invalid("item_id", "")
	}
	if quantity < 0 {
		return nil, invalid("quantity", "must not be negative")
	}

	cart, err := s.repo.UpdateCartItemQuantity(ctx, userID, itemID, quantity, expectedVersion)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.refresh(ctx, cart)
	return cart, nil
}

func (s *CartService) RemoveCartItem(ctx context.Context, userID string, itemID int64, expectedVersion *int64) (*models.Cart, error) {
	return s.UpdateCartItemQuantity(ctx, userID, itemID, 0, expectedVersion)
}

func (s *CartService) ClearUserCart(ctx context.Context, userID string, expectedVersion *int64) (*models.Cart, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	cart, err := s.repo.ClearUserCart(ctx, userID, expectedVersion)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.refresh(ctx, cart)
	return cart, nil
}

func (s *CartService) remember(ctx context.Context, cart *models.Cart) {
	if err := s.cache.Set(ctx, cart); err != nil {
		slog.Warn("cart cache write failed", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
			slog.String(utils.LogKeyUserID, cart.UserID), slog.String(utils.LogKeyError, err.Error()))
	}
}

// refresh caches the cart a write committed. The cache keeps the highest
// version it has seen, so a read-through racing this write cannot restore
// the older cart. When the write fails the entry is dropped instead.
func (s *CartService) refresh(ctx context.Context, cart *models.Cart) {
	err := s.cache.Set(ctx, cart)
	if err == nil {
		return
	}
	slog.Warn("cart cache write failed", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
		slog.String(utils.LogKeyUserID, cart.UserID), slog.String(utils.LogKeyError, err.Error()))
	if err := s.cache.Delete(ctx, cart.UserID); err != nil {
		slog.Warn("cart cache delete failed", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
			slog.String(utils.LogKeyUserID, cart.UserID), slog.String(utils.LogKeyError, err.Error()))
	}
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, database.ErrVersionConflict):
		return ErrConflict
	case errors.Is(err, database.ErrDuplicate):
		return ErrConflict
	}
	return err
}
