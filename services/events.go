package services

import (
	"context"
	"log/slog"
	"time"

	"storefront/models"
	"storefront/utils"
)

// EventPublisher is the order-event outlet. Publishing is best effort: callers
// log failures and carry on.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent, priority uint8) error
	PublishDelayedEvent(ctx context.Context, event models.OrderEvent, delay time.Duration) error
}

type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, models.OrderEvent, uint8) error { return nil }
func (NopPublisher) PublishDelayedEvent(context.Context, models.OrderEvent, time.Duration) error {
	return nil
}

const (
	priorityDefault   uint8 = 5
	priorityCancel    uint8 = 8
	priorityLargeCart uint8 = 9

	// Orders at or above this many minor units jump the queue.
	largeOrderAmount = 100000
)

func createdPriority(total int64) uint8 {
	if total >= largeOrderAmount {
		return priorityLargeCart
	}
	return priorityDefault
}

func statusPriority(orderStatus string) uint8 {
	if orderStatus == models.OrderStatusCanceled {
		return priorityCancel
	}
	return priorityDefault
}

func publishStatusUpdated(ctx context.Context, events EventPublisher, order *models.Order) {
	event := models.OrderEvent{
		OrderID:         order.ID,
		UserID:          order.UserID,
		PaymentIntentID: order.PaymentIntentID,
		Type:            models.EventStatusUpdated,
		PaymentStatus:   order.PaymentStatus,
		OrderStatus:     order.OrderStatus,
		Total:           order.TotalAmount,
		Occurred:        time.Now().UTC(),
	}
	if err := events.PublishOrderEvent(ctx, event, statusPriority(order.OrderStatus)); err != nil {
		slog.Error("failed to publish order status event", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
			slog.String(utils.LogKeyOrderID, order.ID), slog.String(utils.LogKeyError, err.Error()))
	}
}
