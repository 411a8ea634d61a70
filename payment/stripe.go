package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeProvider talks to Stripe through an injected API client rather than
// the package-level stripe.Key.
type StripeProvider struct {
	api *client.API
	cb  *gobreaker.CircuitBreaker[*stripe.PaymentIntent]
}

// NewStripeProvider builds a provider whose HTTP calls are bounded by timeout.
func NewStripeProvider(secretKey string, timeout time.Duration) *StripeProvider {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:    &http.Client{Timeout: timeout},
		LeveledLogger: slogLeveledLogger{},
	})
	return NewStripeProviderWithBackends(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func NewStripeProviderWithBackends(secretKey string, backends *stripe.Backends) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, backends)

	cb := gobreaker.NewCircuitBreaker[*stripe.PaymentIntent](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Declines and validation rejections are answers, not outages.
		IsSuccessful: func(err error) bool {
			var se *stripe.Error
			if errors.As(err, &se) {
				return se.HTTPStatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", slog.String("breaker", name),
				slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})
	return &StripeProvider{api: api, cb: cb}
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, in IntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(strings.ToLower(in.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	if in.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(in.ReceiptEmail)
	}
	if in.Shipping != nil {
		params.Shipping = &stripe.ShippingDetailsParams{
			Name: stripe.String(in.Shipping.Name),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(in.Shipping.Line1),
				City:       stripe.String(in.Shipping.City),
				PostalCode: stripe.String(in.Shipping.PostalCode),
			},
		}
		if in.Shipping.Phone != "" {
			params.Shipping.Phone = stripe.String(in.Shipping.Phone)
		}
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.cb.Execute(func() (*stripe.PaymentIntent, error) {
		return p.api.PaymentIntents.New(params)
	})
	if err != nil {
		return nil, translateError("create payment intent", err)
	}
	return toIntent(pi), nil
}

func (p *StripeProvider) ConfirmPaymentIntent(ctx context.Context, intentID string, method PaymentMethod) (*Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(method.ID),
	}
	params.Context = ctx

	pi, err := p.cb.Execute(func() (*stripe.PaymentIntent, error) {
		return p.api.PaymentIntents.Confirm(intentID, params)
	})
	if err != nil {
		return nil, translateError("confirm payment intent", err)
	}
	return toIntent(pi), nil
}

func (p *StripeProvider) CancelPaymentIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	pi, err := p.cb.Execute(func() (*stripe.PaymentIntent, error) {
		return p.api.PaymentIntents.Cancel(intentID, params)
	})
	if err != nil {
		return nil, translateError("cancel payment intent", err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	in := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
	if pi.LastPaymentError != nil {
		in.LastErrorMessage = pi.LastPaymentError.Msg
	}
	return in
}

func translateError(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return &ProviderError{StatusCode: se.HTTPStatusCode, Code: string(se.Code), Message: se.Msg}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// slogLeveledLogger routes stripe-go's own logging into slog.
type slogLeveledLogger struct{}

func (slogLeveledLogger) Debugf(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (slogLeveledLogger) Infof(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (slogLeveledLogger) Warnf(format string, v ...interface{}) {
	slog.Warn(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (slogLeveledLogger) Errorf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}
