package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middlewares"
	"storefront/models"
	"storefront/payment"
	"storefront/services"
	"storefront/utils"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	AddToCart(ctx context.Context, userID string, line models.NewCartLine, expectedVersion *int64) (*models.Cart, error)
	UpdateCartItemQuantity(ctx context.Context, userID string, itemID int64, quantity int, expectedVersion *int64) (*models.Cart, error)
	RemoveCartItem(ctx context.Context, userID string, itemID int64, expectedVersion *int64) (*models.Cart, error)
	ClearUserCart(ctx context.Context, userID string, expectedVersion *int64) (*models.Cart, error)
}

type PaymentIntentService interface {
	CreatePaymentIntent(ctx context.Context, userID string, req models.PaymentIntentRequest) (*models.PaymentIntentResponse, error)
}

type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (services.WebhookOutcome, *payment.Event, error)
}

type AdminService interface {
	CreateAdmin(ctx context.Context, req services.CreateAdminRequest) (*models.Admin, error)
	Login(ctx context.Context, email, password string) (*services.AdminLogin, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

type OrderService interface {
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	GetUserOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) (*models.Order, error)
}

// Controller holds the use cases behind the HTTP routes.
type Controller struct {
	Carts    CartService
	Payments PaymentIntentService
	Webhooks WebhookService
	Admins   AdminService
	Orders   OrderService
}

// respondError maps the service error taxonomy onto HTTP. Internal and
// upstream detail is logged, never returned.
func respondError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflict, reload and try again"})
	case errors.Is(err, services.ErrUpstream):
		slog.Error("upstream failure", slog.String(utils.LogKeyTraceID, middlewares.GetTraceID(c)),
			slog.String(utils.LogKeyError, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment service unavailable, please try again"})
	default:
		slog.Error("request failed", slog.String(utils.LogKeyTraceID, middlewares.GetTraceID(c)),
			slog.String(utils.LogKeyError, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
