package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"storefront/config"
	"storefront/database"
	"storefront/models"
	"storefront/payment"
	"storefront/rabbitmq"
	"storefront/utils"
)

type OrderLookup interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

type IntentCanceler interface {
	CancelPaymentIntent(ctx context.Context, intentID string) (*payment.Intent, error)
}

// OrderConsumer drains the order queue. The payment check cancels intents
// that are still unpaid; the resulting payment_intent.canceled webhook moves
// the order to canceled, so order status writes stay with the reconciler.
type OrderConsumer struct {
	orders   OrderLookup
	payments IntentCanceler
	timeout  time.Duration
}

// NewOrderConsumer builds a consumer; payments may be nil when no provider is
// configured, in which case payment checks are only logged.
func NewOrderConsumer(orders OrderLookup, payments IntentCanceler) *OrderConsumer {
	return &OrderConsumer{orders: orders, payments: payments, timeout: 30 * time.Second}
}

// Start registers the order and dead-letter consumers and processes
// deliveries until ctx is done or the channel closes.
func (oc *OrderConsumer) Start(ctx context.Context, ch rabbitmq.Channel, cfg *config.Config) error {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"storefront", // consumer tag
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register order consumer: %w", err)
	}

	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"storefront-dlq", // consumer tag
		false,            // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register dead letter consumer: %w", err)
	}

	go oc.drain(ctx, msgs, oc.HandleMessage)
	go oc.drain(ctx, dlqMsgs, oc.HandleDeadLetter)
	return nil
}

func (oc *OrderConsumer) drain(ctx context.Context, msgs <-chan amqp.Delivery, handle func(context.Context, amqp.Delivery)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(ctx, msg)
		}
	}
}

func (oc *OrderConsumer) HandleMessage(ctx context.Context, msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered from panic in order message processing", slog.Any("panic", r))
			_ = msg.Nack(false, false)
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.OrderID == "" {
		slog.Error("invalid order message, dead-lettering", slog.String("body", string(msg.Body)))
		_ = msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, oc.timeout)
	defer cancel()

	slog.Info("processing order event", slog.String(utils.LogKeyOrderID, event.OrderID),
		slog.String(utils.LogKeyEventType, event.Type))

	switch event.Type {
	case models.EventOrderCreated:
		slog.Info("order created", slog.String(utils.LogKeyOrderID, event.OrderID),
			slog.String(utils.LogKeyPaymentIntentID, event.PaymentIntentID), slog.Int64("total", event.Total))
	case models.EventStatusUpdated:
		slog.Info("order status changed", slog.String(utils.LogKeyOrderID, event.OrderID),
			slog.String("payment_status", event.PaymentStatus), slog.String("order_status", event.OrderStatus))
	case models.EventPaymentCheck:
		if err := oc.handlePaymentCheck(ctx, event); err != nil {
			// requeue once for transient failures, then dead-letter
			slog.Error("payment check failed", slog.String(utils.LogKeyOrderID, event.OrderID),
				slog.Bool("redelivered", msg.Redelivered), slog.String(utils.LogKeyError, err.Error()))
			_ = msg.Nack(false, !msg.Redelivered)
			return
		}
	default:
		slog.Warn("unknown order event type", slog.String(utils.LogKeyEventType, event.Type))
	}

	_ = msg.Ack(false)
}

func (oc *OrderConsumer) handlePaymentCheck(ctx context.Context, event models.OrderEvent) error {
	order, err := oc.orders.GetOrder(ctx, event.OrderID)
	if errors.Is(err, database.ErrNotFound) {
		slog.Warn("payment check for unknown order", slog.String(utils.LogKeyOrderID, event.OrderID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}

	if order.PaymentStatus != models.PaymentStatusPending {
		return nil
	}
	if oc.payments == nil {
		slog.Warn("unpaid order left pending, no payment provider configured", slog.String(utils.LogKeyOrderID, order.ID))
		return nil
	}

	intent, err := oc.payments.CancelPaymentIntent(ctx, order.PaymentIntentID)
	if err != nil {
		var pe *payment.ProviderError
		if errors.As(err, &pe) {
			// The intent moved on (paid, already canceled); its webhook wins.
			slog.Info("payment intent not cancelable", slog.String(utils.LogKeyOrderID, order.ID),
				slog.String(utils.LogKeyPaymentIntentID, order.PaymentIntentID), slog.String("reason", pe.Message))
			return nil
		}
		return fmt.Errorf("cancel payment intent: %w", err)
	}

	slog.Info("canceled unpaid payment intent", slog.String(utils.LogKeyOrderID, order.ID),
		slog.String(utils.LogKeyPaymentIntentID, intent.ID))
	return nil
}

func (oc *OrderConsumer) HandleDeadLetter(_ context.Context, msg amqp.Delivery) {
	reason := ""
	if deaths, ok := msg.Headers["x-death"].([]interface{}); ok && len(deaths) > 0 {
		if death, ok := deaths[0].(amqp.Table); ok {
			reason, _ = death["reason"].(string)
		}
	}
	slog.Error("received dead letter", slog.String("body", string(msg.Body)), slog.String("reason", reason))
	_ = msg.Ack(false)
}
