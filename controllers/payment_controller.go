package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middlewares"
	"storefront/models"
	"storefront/payment"
	"storefront/services"
	"storefront/utils"
)

const maxWebhookBodyBytes = int64(65536)

// CreatePaymentIntent serves functions/v1/create-payment-intent.
func (ctl *Controller) CreatePaymentIntent(c *gin.Context) {
	defer middlewares.RecordOperation(c, "create_payment_intent")

	var req models.PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	resp, err := ctl.Payments.CreatePaymentIntent(c.Request.Context(), c.GetString(middlewares.ContextUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StripeWebhook serves functions/v1/stripe-webhook. Responses are plain text;
// any 2xx tells the provider to stop redelivering.
func (ctl *Controller) StripeWebhook(c *gin.Context) {
	traceID := middlewares.GetTraceID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("failed to read webhook body", slog.String(utils.LogKeyTraceID, traceID),
			slog.String(utils.LogKeyError, err.Error()))
		middlewares.RecordWebhookEvent("", "rejected")
		c.String(http.StatusBadRequest, "Invalid payload")
		return
	}

	outcome, evt, err := ctl.Webhooks.HandleEvent(c.Request.Context(), payload, c.GetHeader(payment.SignatureHeader))
	eventType := ""
	if evt != nil {
		eventType = evt.Type
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConfiguration):
			slog.Error("webhook secret not configured", slog.String(utils.LogKeyTraceID, traceID))
			middlewares.RecordWebhookEvent(eventType, "error")
			c.String(http.StatusInternalServerError, "Webhook not configured")
		case errors.Is(err, payment.ErrMissingSignature):
			middlewares.RecordWebhookEvent(eventType, "rejected")
			c.String(http.StatusUnauthorized, "Missing signature")
		case errors.Is(err, services.ErrUnauthenticated):
			slog.Warn("webhook signature verification failed", slog.String(utils.LogKeyTraceID, traceID),
				slog.String(utils.LogKeyError, err.Error()))
			middlewares.RecordWebhookEvent(eventType, "rejected")
			c.String(http.StatusUnauthorized, "Invalid signature")
		case errors.Is(err, services.ErrValidation):
			slog.Warn("unparsable webhook payload", slog.String(utils.LogKeyTraceID, traceID),
				slog.String(utils.LogKeyError, err.Error()))
			middlewares.RecordWebhookEvent(eventType, "rejected")
			c.String(http.StatusBadRequest, "Invalid payload")
		default:
			slog.Error("webhook processing failed", slog.String(utils.LogKeyTraceID, traceID),
				slog.String(utils.LogKeyEventType, eventType), slog.String(utils.LogKeyError, err.Error()))
			middlewares.RecordWebhookEvent(eventType, "error")
			c.String(http.StatusInternalServerError, "Webhook processing failed")
		}
		return
	}

	middlewares.RecordWebhookEvent(eventType, string(outcome))
	c.String(http.StatusOK, "OK")
}
