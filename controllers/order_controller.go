package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middlewares"
)

func (ctl *Controller) GetUserOrders(c *gin.Context) {
	defer middlewares.RecordOperation(c, "list")

	orders, err := ctl.Orders.ListUserOrders(c.Request.Context(), c.GetString(middlewares.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (ctl *Controller) GetOrderDetails(c *gin.Context) {
	defer middlewares.RecordOperation(c, "details")

	order, err := ctl.Orders.GetUserOrder(c.Request.Context(), c.GetString(middlewares.ContextUserID), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetProfile reports who the bearer token belongs to and whether the admin
// console should be offered.
func (ctl *Controller) GetProfile(c *gin.Context) {
	userID := c.GetString(middlewares.ContextUserID)

	isAdmin, err := ctl.Admins.IsAdmin(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":  userID,
		"email":   c.GetString(middlewares.ContextEmail),
		"isAdmin": isAdmin,
	})
}
