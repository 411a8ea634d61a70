package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/database"
	"storefront/models"
	"storefront/payment"
	"storefront/utils"
)

type PaymentStatusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, paymentIntentID, paymentStatus, orderStatus string) (*models.Order, error)
}

// WebhookOutcome labels what happened to a delivered event.
type WebhookOutcome string

const (
	WebhookApplied       WebhookOutcome = "applied"
	WebhookIgnored       WebhookOutcome = "ignored"
	WebhookUnknownIntent WebhookOutcome = "unknown_intent"
)

type statusChange struct {
	paymentStatus string
	orderStatus   string // empty keeps the current order_status
}

var webhookTransitions = map[string]statusChange{
	payment.EventIntentSucceeded:      {models.PaymentStatusSucceeded, models.OrderStatusConfirmed},
	payment.EventIntentPaymentFailed:  {models.PaymentStatusFailed, models.OrderStatusCanceled},
	payment.EventIntentCanceled:       {models.PaymentStatusCanceled, models.OrderStatusCanceled},
	payment.EventIntentRequiresAction: {models.PaymentStatusProcessing, ""},
}

const DefaultWebhookTolerance = 5 * time.Minute

// WebhookService reconciles order state with provider events. Updates are
// absolute assignments, so redelivered events converge on the same state.
type WebhookService struct {
	orders    PaymentStatusUpdater
	events    EventPublisher
	secret    string
	tolerance time.Duration
}

func NewWebhookService(orders PaymentStatusUpdater, events EventPublisher, secret string) *WebhookService {
	if events == nil {
		events = NopPublisher{}
	}
	return &WebhookService{orders: orders, events: events, secret: secret, tolerance: DefaultWebhookTolerance}
}

// HandleEvent verifies and applies one webhook delivery. Nothing is written
// unless the signature checks out.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) (WebhookOutcome, *payment.Event, error) {
	if s.secret == "" {
		return "", nil, fmt.Errorf("%w: webhook secret not set", ErrConfiguration)
	}
	if err := payment.VerifySignature(payload, signature, s.secret, s.tolerance); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	evt, err := payment.ParseEvent(payload)
	if err != nil {
		return "", nil, &ValidationError{Field: "payload", Reason: err.Error()}
	}

	change, ok := webhookTransitions[evt.Type]
	if !ok {
		slog.Info("ignoring webhook event", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
			slog.String(utils.LogKeyEventType, evt.Type), slog.String("event_id", evt.ID))
		return WebhookIgnored, evt, nil
	}
	if evt.ObjectID == "" {
		return "", evt, invalid("data.object.id", "")
	}

	order, err := s.orders.UpdatePaymentStatus(ctx, evt.ObjectID, change.paymentStatus, change.orderStatus)
	if errors.Is(err, database.ErrNotFound) {
		slog.Warn("no order for payment intent", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
			slog.String(utils.LogKeyPaymentIntentID, evt.ObjectID), slog.String(utils.LogKeyEventType, evt.Type))
		return WebhookUnknownIntent, evt, nil
	}
	if err != nil {
		return "", evt, fmt.Errorf("update payment status for %s: %w", evt.ObjectID, err)
	}

	slog.Info("order payment status updated", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
		slog.String(utils.LogKeyOrderID, order.ID), slog.String(utils.LogKeyPaymentIntentID, evt.ObjectID),
		slog.String("payment_status", order.PaymentStatus), slog.String("order_status", order.OrderStatus))

	publishStatusUpdated(ctx, s.events, order)
	return WebhookApplied, evt, nil
}
