package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/models"
)

func seededOrders() *mockOrderStore {
	orders := newMockOrderStore()
	orders.byIntent["pi_1"] = &models.Order{ID: "order-1", UserID: "user-1", PaymentIntentID: "pi_1",
		PaymentStatus: models.PaymentStatusSucceeded, OrderStatus: models.OrderStatusConfirmed}
	orders.byIntent["pi_2"] = &models.Order{ID: "order-2", UserID: "user-2", PaymentIntentID: "pi_2",
		PaymentStatus: models.PaymentStatusPending, OrderStatus: models.OrderStatusProcessing}
	return orders
}

func TestOrderService_OwnerOnly(t *testing.T) {
	svc := NewOrderService(seededOrders(), nil)

	order, err := svc.GetUserOrder(context.Background(), "user-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)

	_, err = svc.GetUserOrder(context.Background(), "user-1", "order-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderService_ListUserOrdersNeverNil(t *testing.T) {
	svc := NewOrderService(seededOrders(), nil)

	orders, err := svc.ListUserOrders(context.Background(), "user-9")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	events := &mockPublisher{}
	svc := NewOrderService(seededOrders(), events)

	order, err := svc.UpdateOrderStatus(context.Background(), "order-1", models.OrderStatusShipped)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusShipped, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusSucceeded, order.PaymentStatus)
	require.Len(t, events.events, 1)
	assert.Equal(t, priorityDefault, events.events[0].priority)
}

func TestOrderService_CancelIsHighPriority(t *testing.T) {
	events := &mockPublisher{}
	svc := NewOrderService(seededOrders(), events)

	_, err := svc.UpdateOrderStatus(context.Background(), "order-2", models.OrderStatusCanceled)
	require.NoError(t, err)
	require.Len(t, events.events, 1)
	assert.Equal(t, priorityCancel, events.events[0].priority)
}

func TestOrderService_UpdateOrderStatusRejections(t *testing.T) {
	svc := NewOrderService(seededOrders(), nil)

	_, err := svc.UpdateOrderStatus(context.Background(), "order-1", "cancelled")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateOrderStatus(context.Background(), "order-9", models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderService_ListOrdersFilter(t *testing.T) {
	svc := NewOrderService(seededOrders(), nil)

	orders, err := svc.ListOrders(context.Background(), models.OrderFilter{OrderStatus: models.OrderStatusProcessing})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-2", orders[0].ID)

	_, err = svc.ListOrders(context.Background(), models.OrderFilter{OrderStatus: "lost"})
	assert.ErrorIs(t, err, ErrValidation)
}
