package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/models"
	"storefront/payment"
	"storefront/utils"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, order *models.Order) error
}

type PaymentIntentService struct {
	provider   payment.Provider
	orders     OrderCreator
	events     EventPublisher
	checkDelay time.Duration
}

// NewPaymentIntentService wires the service. A nil provider means no Stripe
// key is configured; requests then fail with ErrConfiguration.
func NewPaymentIntentService(provider payment.Provider, orders OrderCreator, events EventPublisher, checkDelay time.Duration) *PaymentIntentService {
	if events == nil {
		events = NopPublisher{}
	}
	return &PaymentIntentService{provider: provider, orders: orders, events: events, checkDelay: checkDelay}
}

// CreatePaymentIntent validates the checkout request, creates the provider
// intent and records the pending order.
//
// When the order insert fails after the intent exists, the failure is logged
// and the response still carries the client secret, without an order id.
func (s *PaymentIntentService) CreatePaymentIntent(ctx context.Context, userID string, req models.PaymentIntentRequest) (*models.PaymentIntentResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if err := validatePaymentIntentRequest(&req); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, fmt.Errorf("%w: payment provider key not set", ErrConfiguration)
	}

	traceID := utils.GetTraceID(ctx)
	customer := req.CustomerInfo.Customer()
	orderID := uuid.NewString()

	params := payment.IntentParams{
		Amount:       req.Amount,
		Currency:     strings.ToLower(req.Currency),
		Description:  req.ProductName,
		ReceiptEmail: customer.Email,
		Metadata: map[string]string{
			"order_id": orderID,
			"user_id":  userID,
		},
	}
	if req.ProductID != "" {
		params.Metadata["product_id"] = req.ProductID
	}
	if req.DeliveryMethod != "" {
		params.Metadata["delivery_method"] = req.DeliveryMethod
	}
	if customer.HasShipping() {
		params.Shipping = &payment.Shipping{
			Name:       customer.Name,
			Phone:      customer.Phone,
			Line1:      customer.Address,
			City:       customer.City,
			PostalCode: customer.PostalCode,
		}
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, params)
	if err != nil {
		slog.Error("payment intent creation failed", slog.String(utils.LogKeyTraceID, traceID),
			slog.String(utils.LogKeyUserID, userID), slog.String(utils.LogKeyError, err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp := &models.PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:              orderID,
		UserID:          userID,
		PaymentIntentID: intent.ID,
		Customer:        customer,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryFee:     req.DeliveryFee,
		TotalAmount:     req.Amount,
		Currency:        params.Currency,
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           orderItems(&req),
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		slog.Error("order insert failed after payment intent was created", slog.String(utils.LogKeyTraceID, traceID),
			slog.String(utils.LogKeyPaymentIntentID, intent.ID), slog.String(utils.LogKeyOrderID, orderID),
			slog.String(utils.LogKeyError, err.Error()))
		return resp, nil
	}
	resp.OrderID = order.ID

	slog.Info("order created", slog.String(utils.LogKeyTraceID, traceID), slog.String(utils.LogKeyOrderID, order.ID),
		slog.String(utils.LogKeyPaymentIntentID, intent.ID), slog.Int64("total", order.TotalAmount))

	s.publishCreated(ctx, order)
	return resp, nil
}

func (s *PaymentIntentService) publishCreated(ctx context.Context, order *models.Order) {
	event := models.OrderEvent{
		OrderID:         order.ID,
		UserID:          order.UserID,
		PaymentIntentID: order.PaymentIntentID,
		Type:            models.EventOrderCreated,
		PaymentStatus:   order.PaymentStatus,
		OrderStatus:     order.OrderStatus,
		Total:           order.TotalAmount,
		Occurred:        order.CreatedAt,
	}
	if err := s.events.PublishOrderEvent(ctx, event, createdPriority(order.TotalAmount)); err != nil {
		slog.Error("failed to publish order created event", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
			slog.String(utils.LogKeyOrderID, order.ID), slog.String(utils.LogKeyError, err.Error()))
	}

	if s.checkDelay <= 0 {
		return
	}
	event.Type = models.EventPaymentCheck
	if err := s.events.PublishDelayedEvent(ctx, event, s.checkDelay); err != nil {
		slog.Error("failed to publish delayed payment check event", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
			slog.String(utils.LogKeyOrderID, order.ID), slog.String(utils.LogKeyError, err.Error()))
	}
}

func validatePaymentIntentRequest(req *models.PaymentIntentRequest) error {
	req.Currency = strings.TrimSpace(req.Currency)
	req.ProductName = strings.TrimSpace(req.ProductName)
	req.CustomerInfo.Name = strings.TrimSpace(req.CustomerInfo.Name)
	req.CustomerInfo.Email = strings.TrimSpace(req.CustomerInfo.Email)

	if err := validateStruct(req); err != nil {
		return err
	}
	if req.DeliveryFee > req.Amount {
		return invalid("deliveryFee", "must not exceed amount")
	}
	return nil
}

// orderItems snapshots the purchased lines: the cart lines when present,
// otherwise a single line priced from the amount net of delivery.
func orderItems(req *models.PaymentIntentRequest) []models.OrderItem {
	if len(req.CartItems) > 0 {
		items := make([]models.OrderItem, 0, len(req.CartItems))
		for _, ci := range req.CartItems {
			items = append(items, models.OrderItem{
				ProductID:   ci.ProductID,
				ProductName: ci.ProductName,
				UnitPrice:   ci.Price,
				Quantity:    ci.Quantity,
				Color:       ci.SelectedColor,
				Size:        ci.SelectedSize,
				Note:        ci.Note,
			})
		}
		return items
	}

	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}
	line := models.OrderItem{
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Color:       req.SelectedColor,
	}

	// The lines must add up to the net charge; an uneven split puts the
	// remainder on a line of its own.
	net := req.Amount - req.DeliveryFee
	unit, rem := net/int64(qty), net%int64(qty)
	if rem == 0 {
		line.UnitPrice, line.Quantity = unit, qty
		return []models.OrderItem{line}
	}
	first, rest := line, line
	first.UnitPrice, first.Quantity = unit+rem, 1
	rest.UnitPrice, rest.Quantity = unit, qty-1
	return []models.OrderItem{first, rest}
}
