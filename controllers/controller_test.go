package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"storefront/database"
	"storefront/middlewares"
	"storefront/models"
	"storefront/payment"
	"storefront/services"
	"storefront/utils"
)

const (
	testJWTSecret     = "jwt-secret"
	testWebhookSecret = "whsec_test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct {
	calls int
}

func (f *fakeProvider) CreatePaymentIntent(context.Context, payment.IntentParams) (*payment.Intent, error) {
	f.calls++
	return &payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

func (f *fakeProvider) ConfirmPaymentIntent(context.Context, string, payment.PaymentMethod) (*payment.Intent, error) {
	return nil, nil
}

func (f *fakeProvider) CancelPaymentIntent(context.Context, string) (*payment.Intent, error) {
	return nil, nil
}

// fakeOrders is an in-memory order table keyed by order id.
type fakeOrders struct {
	orders map[string]*models.Order
	writes int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*models.Order{}}
}

func (f *fakeOrders) CreateOrder(_ context.Context, o *models.Order) error {
	cp := *o
	f.orders[o.ID] = &cp
	f.writes++
	return nil
}

func (f *fakeOrders) UpdatePaymentStatus(_ context.Context, intentID, paymentStatus, orderStatus string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.PaymentIntentID == intentID {
			f.writes++
			o.PaymentStatus = paymentStatus
			if orderStatus != "" {
				o.OrderStatus = orderStatus
			}
			cp := *o
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeOrders) GetOrder(_ context.Context, id string) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeOrders) GetUserOrder(ctx context.Context, userID, id string) (*models.Order, error) {
	o, err := f.GetOrder(ctx, id)
	if err != nil || o.UserID != userID {
		return nil, database.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) ListUserOrders(_ context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListOrders(_ context.Context, _ models.OrderFilter) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrders) UpdateOrderStatus(_ context.Context, id, status string) error {
	o, ok := f.orders[id]
	if !ok {
		return database.ErrNotFound
	}
	f.writes++
	o.OrderStatus = status
	return nil
}

type fakeAdmins struct {
	admins map[string]*models.Admin
}

func (f *fakeAdmins) CreateAdmin(_ context.Context, a *models.Admin) error {
	for _, existing := range f.admins {
		if existing.Email == a.Email {
			return database.ErrDuplicate
		}
	}
	cp := *a
	f.admins[a.ID] = &cp
	return nil
}

func (f *fakeAdmins) GetAdminByEmail(_ context.Context, email string) (*models.Admin, error) {
	for _, a := range f.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeAdmins) IsAdmin(_ context.Context, id string) (bool, error) {
	_, ok := f.admins[id]
	return ok, nil
}

func (f *fakeAdmins) UpdateAdminLastLogin(_ context.Context, id string) error {
	if _, ok := f.admins[id]; !ok {
		return database.ErrNotFound
	}
	return nil
}

// fakeCarts mirrors the cart RPC semantics without a database.
type fakeCarts struct {
	nextID int64
	carts  map[string]*models.Cart
}

func (f *fakeCarts) cart(userID string) *models.Cart {
	if f.carts[userID] == nil {
		f.carts[userID] = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}
	return f.carts[userID]
}

func (f *fakeCarts) GetCart(_ context.Context, userID string) (*models.Cart, error) {
	return f.cart(userID), nil
}

func (f *fakeCarts) AddToCart(_ context.Context, userID string, line models.NewCartLine, _ *int64) (*models.Cart, error) {
	c := f.cart(userID)
	f.nextID++
	c.Version++
	c.Items = append(c.Items, models.CartItem{ID: f.nextID, ProductID: line.ProductID, ProductName: line.ProductName,
		UnitPrice: line.UnitPrice, Quantity: line.Quantity})
	return c, nil
}

func (f *fakeCarts) UpdateCartItemQuantity(_ context.Context, userID string, itemID int64, qty int, expected *int64) (*models.Cart, error) {
	c := f.cart(userID)
	if expected != nil && *expected != c.Version {
		return nil, database.ErrVersionConflict
	}
	for i, item := range c.Items {
		if item.ID == itemID {
			c.Version++
			if qty == 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			} else {
				c.Items[i].Quantity = qty
			}
			return c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeCarts) ClearUserCart(_ context.Context, userID string, _ *int64) (*models.Cart, error) {
	c := f.cart(userID)
	c.Version++
	c.Items = []models.CartItem{}
	return c, nil
}

type testEnv struct {
	router   *gin.Engine
	provider *fakeProvider
	orders   *fakeOrders
	admins   *fakeAdmins
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		provider: &fakeProvider{},
		orders:   newFakeOrders(),
		admins:   &fakeAdmins{admins: map[string]*models.Admin{}},
	}
	ctl := &Controller{
		Carts:    services.NewCartService(&fakeCarts{carts: map[string]*models.Cart{}}, nil),
		Payments: services.NewPaymentIntentService(env.provider, env.orders, nil, 0),
		Webhooks: services.NewWebhookService(env.orders, nil, testWebhookSecret),
		Admins:   services.NewAdminService(env.admins, "master-key", testJWTSecret, time.Hour),
		Orders:   services.NewOrderService(env.orders, nil),
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(middlewares.MethodNotAllowed)
	r.Use(middlewares.TraceMiddleware())
	ctl.RegisterRoutes(r, testJWTSecret)
	env.router = r
	return env
}

func (env *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := utils.GenerateToken(testJWTSecret, userID, userID+"@example.com", "", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
