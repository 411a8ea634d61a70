package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/middlewares"
	"storefront/models"
	"storefront/services"
)

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateOrderStatusRequest struct {
	OrderStatus string `json:"order_status" binding:"required,oneof=processing confirmed shipped delivered canceled"`
}

// CreateAdmin serves functions/v1/create-admin.
func (ctl *Controller) CreateAdmin(c *gin.Context) {
	defer middlewares.RecordOperation(c, "create_admin")

	var req services.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	admin, err := ctl.Admins.CreateAdmin(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "admin": admin.Summary()})
}

func (ctl *Controller) AdminLogin(c *gin.Context) {
	defer middlewares.RecordOperation(c, "admin_login")

	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	login, err := ctl.Admins.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, login)
}

// UpdateAdminLastLogin serves rpc/update_admin_last_login for the calling admin.
func (ctl *Controller) UpdateAdminLastLogin(c *gin.Context) {
	if err := ctl.Admins.UpdateLastLogin(c.Request.Context(), c.GetString(middlewares.ContextUserID)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ctl *Controller) AdminListOrders(c *gin.Context) {
	defer middlewares.RecordOperation(c, "admin_list_orders")

	filter := models.OrderFilter{
		OrderStatus:   c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
	}
	var err error
	if v := c.Query("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
	}
	if v := c.Query("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
			return
		}
	}

	orders, err := ctl.Orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (ctl *Controller) AdminGetOrder(c *gin.Context) {
	defer middlewares.RecordOperation(c, "admin_order_details")

	order, err := ctl.Orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (ctl *Controller) AdminUpdateOrderStatus(c *gin.Context) {
	defer middlewares.RecordOperation(c, "update_status")

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_status must be one of processing, confirmed, shipped, delivered, canceled"})
		return
	}

	order, err := ctl.Orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.OrderStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": order})
}
