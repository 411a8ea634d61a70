package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const SignatureHeader = "Stripe-Signature"

const (
	EventIntentSucceeded      = string(stripe.EventTypePaymentIntentSucceeded)
	EventIntentPaymentFailed  = string(stripe.EventTypePaymentIntentPaymentFailed)
	EventIntentCanceled       = string(stripe.EventTypePaymentIntentCanceled)
	EventIntentRequiresAction = string(stripe.EventTypePaymentIntentRequiresAction)
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Event is the part of a provider event envelope the reconciler acts on.
type Event struct {
	ID       string
	Type     string
	ObjectID string
}

func (e *Event) IsPaymentIntent() bool {
	return strings.HasPrefix(e.Type, "payment_intent.")
}

// VerifySignature checks the header's v1 signature, an HMAC-SHA256 over
// "{timestamp}.{payload}" keyed with secret, and rejects timestamps older than
// tolerance.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	if header == "" {
		return ErrMissingSignature
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, header, secret, tolerance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// ParseEvent decodes a verified payload.
func ParseEvent(payload []byte) (*Event, error) {
	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if evt.Type == "" {
		return nil, errors.New("decode event: missing type")
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data != nil && len(evt.Data.Raw) > 0 {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(evt.Data.Raw, &obj); err != nil {
			return nil, fmt.Errorf("decode event object: %w", err)
		}
		out.ObjectID = obj.ID
	}
	return out, nil
}
