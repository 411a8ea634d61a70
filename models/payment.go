package models

import "strings"

// PaymentIntentRequest is the body of POST /functions/v1/create-payment-intent.
// Amounts are integer minor currency units.
type PaymentIntentRequest struct {
	Amount         int64          `json:"amount" validate:"gt=0"`
	Currency       string         `json:"currency" validate:"required"`
	ProductName    string         `json:"productName" validate:"required"`
	ProductID      string         `json:"productId"`
	Quantity       int            `json:"quantity,omitempty" validate:"gte=0"`
	SelectedColor  string         `json:"selectedColor,omitempty"`
	DeliveryMethod string         `json:"deliveryMethod,omitempty"`
	DeliveryFee    int64          `json:"deliveryFee,omitempty" validate:"gte=0"`
	CartItems      []CheckoutItem `json:"cartItems,omitempty" validate:"omitempty,dive"`
	CustomerInfo   CustomerInfo   `json:"customerInfo"`
}

type CheckoutItem struct {
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName" validate:"required"`
	Price         int64  `json:"price" validate:"gte=0"`
	Quantity      int    `json:"quantity" validate:"gte=1"`
	SelectedColor string `json:"selectedColor,omitempty"`
	SelectedSize  string `json:"selectedSize,omitempty"`
	Note          string `json:"note,omitempty"`
}

type CustomerInfo struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

func (ci CustomerInfo) Customer() Customer {
	return Customer{
		Name:       strings.TrimSpace(ci.Name),
		Email:      strings.TrimSpace(ci.Email),
		Phone:      strings.TrimSpace(ci.Phone),
		Address:    strings.TrimSpace(ci.Address),
		City:       strings.TrimSpace(ci.City),
		PostalCode: strings.TrimSpace(ci.PostalCode),
	}
}

type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	OrderID         string `json:"orderId,omitempty"`
}
