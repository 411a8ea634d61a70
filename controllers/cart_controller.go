package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middlewares"
	"storefront/models"
)

type addToCartRequest struct {
	models.NewCartLine
	ExpectedVersion *int64 `json:"expected_version"`
}

type updateQuantityRequest struct {
	ItemID          int64  `json:"item_id" binding:"required"`
	Quantity        *int   `json:"quantity" binding:"required"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type removeItemRequest struct {
	ItemID          int64  `json:"item_id" binding:"required"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type clearCartRequest struct {
	ExpectedVersion *int64 `json:"expected_version"`
}

func (ctl *Controller) GetCart(c *gin.Context) {
	defer middlewares.RecordOperation(c, "cart_get")

	cart, err := ctl.Carts.GetCart(c.Request.Context(), c.GetString(middlewares.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart.View())
}

// AddToCart serves rpc/add_to_cart.
func (ctl *Controller) AddToCart(c *gin.Context) {
	defer middlewares.RecordOperation(c, "cart_add")

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	cart, err := ctl.Carts.AddToCart(c.Request.Context(), c.GetString(middlewares.ContextUserID), req.NewCartLine, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart.View())
}

// UpdateCartItemQuantity serves rpc/update_cart_item_quantity; quantity 0
// removes the line.
func (ctl *Controller) UpdateCartItemQuantity(c *gin.Context) {
	defer middlewares.RecordOperation(c, "cart_update_quantity")

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id and quantity are required"})
		return
	}

	cart, err := ctl.Carts.UpdateCartItemQuantity(c.Request.Context(), c.GetString(middlewares.ContextUserID),
		req.ItemID, *req.Quantity, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart.View())
}

func (ctl *Controller) RemoveCartItem(c *gin.Context) {
	defer middlewares.RecordOperation(c, "cart_remove")

	var req removeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id is required"})
		return
	}

	cart, err := ctl.Carts.RemoveCartItem(c.Request.Context(), c.GetString(middlewares.ContextUserID), req.ItemID, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart.View())
}

// ClearUserCart serves rpc/clear_user_cart. The body is optional.
func (ctl *Controller) ClearUserCart(c *gin.Context) {
	defer middlewares.RecordOperation(c, "cart_clear")

	var req clearCartRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	cart, err := ctl.Carts.ClearUserCart(c.Request.Context(), c.GetString(middlewares.ContextUserID), req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart.View())
}
