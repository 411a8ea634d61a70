package services

import (
	"context"
	"errors"
	"log/slog"

	"storefront/database"
	"storefront/models"
	"storefront/utils"
)

type OrderRepository interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	GetUserOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// OrderService serves order tracking for customers and the admin console.
type OrderService struct {
	repo   OrderRepository
	events EventPublisher
}

func NewOrderService(repo OrderRepository, events EventPublisher) *OrderService {
	if events == nil {
		events = NopPublisher{}
	}
	return &OrderService{repo: repo, events: events}
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	orders, err := s.repo.ListUserOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// GetUserOrder returns the order only to its owner; anyone else gets
// ErrNotFound.
func (s *OrderService) GetUserOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	order, err := s.repo.GetUserOrder(ctx, userID, orderID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if filter.OrderStatus != "" {
		if err := validateVar("status", filter.OrderStatus, orderStatusOneOf); err != nil {
			return nil, err
		}
	}
	if err := validateVar("limit", filter.Limit, "gte=0"); err != nil {
		return nil, err
	}
	if err := validateVar("offset", filter.Offset, "gte=0"); err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return order, nil
}

// UpdateOrderStatus is the admin fulfilment action; payment_status is never
// touched here.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	if err := validateVar("order_status", status, "required,"+orderStatusOneOf); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	slog.Info("order status updated by admin", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
		slog.String(utils.LogKeyOrderID, orderID), slog.String("order_status", status))

	publishStatusUpdated(ctx, s.events, order)
	return order, nil
}
