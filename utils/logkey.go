package utils

// slog attribute keys shared across packages.
const (
	LogKeyTraceID         = "trace_id"
	LogKeyError           = "error"
	LogKeyUserID          = "user_id"
	LogKeyOrderID         = "order_id"
	LogKeyPaymentIntentID = "payment_intent_id"
	LogKeyEventType       = "event_type"
)
