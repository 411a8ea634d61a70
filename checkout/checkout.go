// Package checkout drives one customer checkout against the storefront
// backend: it obtains a payment handle from create-payment-intent and then
// confirms it with the payment provider.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"storefront/models"
	"storefront/payment"
	"storefront/utils"
)

const (
	PaymentIntentPath = "/functions/v1/create-payment-intent"
	ConfirmationPath  = "/order-confirmation"
)

var ErrInvalidInput = errors.New("invalid checkout input")

// InputError is raised before any network call. Message is shown to the customer.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// PaymentError carries the provider's decline message unchanged.
type PaymentError struct {
	Message string
}

func (e *PaymentError) Error() string { return e.Message }

// Confirmer confirms a payment intent with a tokenized card or wallet credential.
type Confirmer interface {
	ConfirmPaymentIntent(ctx context.Context, intentID string, method payment.PaymentMethod) (*payment.Intent, error)
}

// Handle is the payment intent issued for the current session.
type Handle struct {
	ClientSecret    string
	PaymentIntentID string
	OrderID         string
}

type Result struct {
	OrderReference   string
	OrderID          string
	ConfirmationPath string
}

type Config struct {
	Endpoint   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Orchestrator struct {
	endpoint  string
	client    *http.Client
	confirmer Confirmer
	validate  *validator.Validate

	mu     sync.Mutex
	handle *Handle
}

func New(cfg Config, confirmer Confirmer) *Orchestrator {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Orchestrator{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		client:    client,
		confirmer: confirmer,
		validate:  validator.New(),
	}
}

type preflight struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Token    string `validate:"required"`
	Endpoint string `validate:"required,url"`
}

var preflightMessages = map[string]string{
	"Name":     "Please enter your name",
	"Email":    "Please enter a valid email address",
	"Token":    "Please sign in to complete your purchase",
	"Endpoint": "Checkout is not available right now",
}

func (o *Orchestrator) check(token string, req *models.PaymentIntentRequest) error {
	err := o.validate.Struct(preflight{
		Name:     strings.TrimSpace(req.CustomerInfo.Name),
		Email:    strings.TrimSpace(req.CustomerInfo.Email),
		Token:    token,
		Endpoint: o.endpoint,
	})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		return &InputError{Field: field, Message: preflightMessages[field]}
	}
	return err
}

// Checkout runs the steps in order: validate, obtain a handle, confirm.
// A failed confirmation keeps the handle so the customer can try another
// card without a second intent being created.
func (o *Orchestrator) Checkout(ctx context.Context, token string, req models.PaymentIntentRequest, method payment.PaymentMethod) (*Result, error) {
	if err := o.check(token, &req); err != nil {
		return nil, err
	}
	if method.ID == "" {
		return nil, &InputError{Field: "PaymentMethod", Message: "Please enter your payment details"}
	}

	handle, err := o.ensureHandle(ctx, token, req)
	if err != nil {
		return nil, err
	}

	intent, err := o.confirmer.ConfirmPaymentIntent(ctx, handle.PaymentIntentID, method)
	if err != nil {
		var perr *payment.ProviderError
		if errors.As(err, &perr) {
			return nil, &PaymentError{Message: perr.Message}
		}
		return nil, fmt.Errorf("confirm payment: %w", err)
	}
	if !intent.Settled() {
		msg := intent.LastErrorMessage
		if msg == "" {
			msg = "Your payment could not be completed"
		}
		return nil, &PaymentError{Message: msg}
	}

	slog.Info("checkout completed", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
		slog.String(utils.LogKeyPaymentIntentID, intent.ID), slog.String(utils.LogKeyOrderID, handle.OrderID))

	o.Reset()
	return &Result{
		OrderReference:   intent.ID,
		OrderID:          handle.OrderID,
		ConfirmationPath: ConfirmationPath + "?" + url.Values{"payment_intent": {intent.ID}}.Encode(),
	}, nil
}

// Handle returns the retained payment handle, if any.
func (o *Orchestrator) Handle() *Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.handle == nil {
		return nil
	}
	h := *o.handle
	return &h
}

// Reset drops the retained handle; the next checkout requests a new one.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.handle = nil
	o.mu.Unlock()
}

// ensureHandle holds the lock across the request so a wallet completion
// racing the card form reuses the first handle.
func (o *Orchestrator) ensureHandle(ctx context.Context, token string, req models.PaymentIntentRequest) (*Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.handle != nil {
		h := *o.handle
		return &h, nil
	}

	handle, err := o.requestHandle(ctx, token, req)
	if err != nil {
		return nil, err
	}
	o.handle = handle
	h := *handle
	return &h, nil
}

func (o *Orchestrator) requestHandle(ctx context.Context, token string, req models.PaymentIntentRequest) (*Handle, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error encoding checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+PaymentIntentPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if traceID := utils.GetTraceID(ctx); traceID != "" {
		httpReq.Header.Set("X-Request-ID", traceID)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error calling payment intent service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, &InputError{Message: apiErr.Error}
		}
		return nil, fmt.Errorf("payment intent service returned %d: %s", resp.StatusCode, apiErr.Error)
	}

	var out models.PaymentIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error decoding payment intent response: %w", err)
	}
	if out.PaymentIntentID == "" {
		return nil, errors.New("payment intent response has no paymentIntentId")
	}
	return &Handle{ClientSecret: out.ClientSecret, PaymentIntentID: out.PaymentIntentID, OrderID: out.OrderID}, nil
}
