package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/models"
	"storefront/services"
)

func createAdmin(t *testing.T, env *testEnv) string {
	t.Helper()
	w := env.do(t, http.MethodPost, "/functions/v1/create-admin", "", gin.H{
		"email": "ops@example.com", "password": "long enough", "username": "ops", "masterKey": "master-key",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[struct {
		Success bool                `json:"success"`
		Admin   models.AdminSummary `json:"admin"`
	}](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "ops", resp.Admin.Username)
	return resp.Admin.ID
}

func TestCreateAdminEndpoint(t *testing.T) {
	env := newTestEnv(t)
	createAdmin(t, env)

	w := env.do(t, http.MethodPost, "/functions/v1/create-admin", "", gin.H{
		"email": "ops@example.com", "password": "long enough", "username": "ops", "masterKey": "master-key",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/functions/v1/create-admin", "", gin.H{
		"email": "x@example.com", "password": "long enough", "username": "x", "masterKey": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestAdminLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	createAdmin(t, env)

	w := env.do(t, http.MethodPost, "/functions/v1/admin-login", "", gin.H{"email": "ops@example.com", "password": "long enough"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[services.AdminLogin](t, w)
	assert.NotEmpty(t, login.Token)

	w = env.do(t, http.MethodPost, "/functions/v1/admin-login", "", gin.H{"email": "ops@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminConsole(t *testing.T) {
	env := newTestEnv(t)
	adminID := createAdmin(t, env)
	seedOrder(env)

	w := env.do(t, http.MethodGet, "/api/admin/orders", "user-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/orders?status=processing&limit=10", adminID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Order](t, w), 1)

	w = env.do(t, http.MethodGet, "/api/admin/orders?limit=abc", adminID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/admin/orders/order-1/status", adminID, gin.H{"order_status": "shipped"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusShipped, env.orders.orders["order-1"].OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, env.orders.orders["order-1"].PaymentStatus)

	w = env.do(t, http.MethodPut, "/api/admin/orders/order-1/status", adminID, gin.H{"order_status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/orders/order-9", adminID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/rest/v1/rpc/update_admin_last_login", adminID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCustomerOrdersAndProfile(t *testing.T) {
	env := newTestEnv(t)
	seedOrder(env)

	w := env.do(t, http.MethodGet, "/api/orders", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Order](t, w), 1)

	w = env.do(t, http.MethodGet, "/api/orders/order-1", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/profile", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"user-1","email":"user-1@example.com","isAdmin":false}`, w.Body.String())
}
