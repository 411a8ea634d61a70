package models

import (
	"strings"
	"time"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusSucceeded  = "succeeded"
	PaymentStatusFailed     = "failed"
	PaymentStatusCanceled   = "canceled"
)

const (
	OrderStatusProcessing = "processing"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
)

// OrderStatuses lists the values an admin may assign to order_status.
var OrderStatuses = []string{
	OrderStatusProcessing,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	Customer        Customer    `json:"customer"`
	DeliveryMethod  string      `json:"delivery_method,omitempty"`
	DeliveryFee     int64       `json:"delivery_fee"`
	TotalAmount     int64       `json:"total_amount"`
	Currency        string      `json:"currency"`
	PaymentStatus   string      `json:"payment_status"`
	OrderStatus     string      `json:"order_status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Items           []OrderItem `json:"items,omitempty"`
}

// Customer is the contact/shipping snapshot stored with an order.
type Customer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// HasShipping reports whether the shipping block is complete.
// Partial or blank address data counts as no shipping data.
func (c Customer) HasShipping() bool {
	return strings.TrimSpace(c.Address) != "" && strings.TrimSpace(c.City) != "" &&
		strings.TrimSpace(c.PostalCode) != ""
}

type OrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Color       string `json:"color,omitempty"`
	Size        string `json:"size,omitempty"`
	Note        string `json:"note,omitempty"`
}

func (i OrderItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	OrderStatus   string
	PaymentStatus string
	Limit         int
	Offset        int
}

const (
	EventOrderCreated  = "created"
	EventStatusUpdated = "status_updated"
	EventPaymentCheck  = "payment_check"
)

type OrderEvent struct {
	OrderID         string    `json:"order_id"`
	UserID          string    `json:"user_id,omitempty"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	Type            string    `json:"type"` // created, status_updated, payment_check
	PaymentStatus   string    `json:"payment_status,omitempty"`
	OrderStatus     string    `json:"order_status,omitempty"`
	Total           int64     `json:"total,omitempty"`
	Occurred        time.Time `json:"occurred"`
}
