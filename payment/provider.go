package payment

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnavailable = errors.New("payment provider unavailable")

// IntentParams describes a payment intent to create. Amount is in minor units.
type IntentParams struct {
	Amount       int64
	Currency     string
	Description  string
	ReceiptEmail string
	Shipping     *Shipping
	Metadata     map[string]string
}

type Shipping struct {
	Name       string
	Phone      string
	Line1      string
	City       string
	PostalCode string
}

type Intent struct {
	ID               string
	ClientSecret     string
	Status           string
	Amount           int64
	Currency         string
	LastErrorMessage string
}

const (
	IntentStatusSucceeded  = "succeeded"
	IntentStatusProcessing = "processing"
)

// Settled reports whether confirmation went through from the customer's side.
func (i *Intent) Settled() bool {
	return i.Status == IntentStatusSucceeded || i.Status == IntentStatusProcessing
}

type MethodKind string

const (
	MethodCard   MethodKind = "card"
	MethodWallet MethodKind = "wallet"
)

// PaymentMethod is a tokenized card or wallet credential; raw card data never
// reaches this service.
type PaymentMethod struct {
	ID   string
	Kind MethodKind
}

type Provider interface {
	CreatePaymentIntent(ctx context.Context, params IntentParams) (*Intent, error)
	ConfirmPaymentIntent(ctx context.Context, intentID string, method PaymentMethod) (*Intent, error)
	CancelPaymentIntent(ctx context.Context, intentID string) (*Intent, error)
}

// ProviderError is a rejection reported by the provider. Message is safe to
// show to the customer.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}
