package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"

	"storefront/models"
)

const webhookSecret = "whsec_test"

func eventPayload(eventType, intentID string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"data":{"object":{"id":%q,"object":"payment_intent"}}}`,
		eventType, intentID))
}

func sign(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func newWebhookService() (*WebhookService, *mockOrderStore, *mockPublisher) {
	orders := newMockOrderStore()
	orders.byIntent["pi_123"] = &models.Order{
		ID:              "order-1",
		UserID:          "user-1",
		PaymentIntentID: "pi_123",
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusProcessing,
	}
	events := &mockPublisher{}
	return NewWebhookService(orders, events, webhookSecret), orders, events
}

func TestWebhook_Transitions(t *testing.T) {
	cases := []struct {
		eventType     string
		paymentStatus string
		orderStatus   string
	}{
		{"payment_intent.succeeded", models.PaymentStatusSucceeded, models.OrderStatusConfirmed},
		{"payment_intent.payment_failed", models.PaymentStatusFailed, models.OrderStatusCanceled},
		{"payment_intent.canceled", models.PaymentStatusCanceled, models.OrderStatusCanceled},
		{"payment_intent.requires_action", models.PaymentStatusProcessing, models.OrderStatusProcessing},
	}
	for _, tc := range cases {
		t.Run(tc.eventType, func(t *testing.T) {
			svc, orders, events := newWebhookService()
			payload := eventPayload(tc.eventType, "pi_123")

			outcome, evt, err := svc.HandleEvent(context.Background(), payload, sign(payload))
			require.NoError(t, err)

			assert.Equal(t, WebhookApplied, outcome)
			assert.Equal(t, tc.eventType, evt.Type)
			order := orders.byIntent["pi_123"]
			assert.Equal(t, tc.paymentStatus, order.PaymentStatus)
			assert.Equal(t, tc.orderStatus, order.OrderStatus)
			assert.Equal(t, []string{models.EventStatusUpdated}, events.types())
		})
	}
}

func TestWebhook_ReplayConverges(t *testing.T) {
	svc, orders, _ := newWebhookService()
	payload := eventPayload("payment_intent.succeeded", "pi_123")
	header := sign(payload)

	for i := 0; i < 2; i++ {
		_, _, err := svc.HandleEvent(context.Background(), payload, header)
		require.NoError(t, err)
	}

	order := orders.byIntent["pi_123"]
	assert.Equal(t, models.PaymentStatusSucceeded, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, order.OrderStatus)
}

func TestWebhook_BadSignatureWritesNothing(t *testing.T) {
	svc, orders, events := newWebhookService()
	payload := eventPayload("payment_intent.succeeded", "pi_123")
	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_other",
		Timestamp: time.Now(),
	}).Header

	for _, header := range []string{"", forged, "t=1,v1=deadbeef"} {
		_, _, err := svc.HandleEvent(context.Background(), payload, header)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}

	assert.Zero(t, orders.updates)
	assert.Empty(t, events.events)
	assert.Equal(t, models.PaymentStatusPending, orders.byIntent["pi_123"].PaymentStatus)
}

func TestWebhook_MissingSecret(t *testing.T) {
	svc := NewWebhookService(newMockOrderStore(), nil, "")
	payload := eventPayload("payment_intent.succeeded", "pi_123")

	_, _, err := svc.HandleEvent(context.Background(), payload, sign(payload))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestWebhook_UnknownEventIgnored(t *testing.T) {
	svc, orders, _ := newWebhookService()
	payload := eventPayload("charge.refunded", "ch_1")

	outcome, _, err := svc.HandleEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome)
	assert.Zero(t, orders.updates)
}

func TestWebhook_UnknownIntentIsNotAnError(t *testing.T) {
	svc, _, events := newWebhookService()
	payload := eventPayload("payment_intent.succeeded", "pi_missing")

	outcome, _, err := svc.HandleEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.Equal(t, WebhookUnknownIntent, outcome)
	assert.Empty(t, events.events)
}

func TestWebhook_StoreFailureSurfaces(t *testing.T) {
	svc, orders, _ := newWebhookService()
	orders.updateErr = errors.New("deadlock found")
	payload := eventPayload("payment_intent.succeeded", "pi_123")

	_, _, err := svc.HandleEvent(context.Background(), payload, sign(payload))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestWebhook_SignedGarbageIsValidationError(t *testing.T) {
	svc, _, _ := newWebhookService()
	payload := []byte(`not json`)

	_, _, err := svc.HandleEvent(context.Background(), payload, sign(payload))
	assert.ErrorIs(t, err, ErrValidation)
}
