package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

func (h *HTTPHandler) GetCart(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}

	cart, err := h.carts.GetCart(c.Request.Context(), customerID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toCart(cart))
}

func (h *HTTPHandler) QuoteCart(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}

	quote, err := h.carts.Quote(c.Request.Context(), customerID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuote(quote))
}

func (h *HTTPHandler) AddCartLine(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}

	var req addCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	item, err := h.carts.AddOrIncreaseCartLine(c.Request.Context(), customerID, req.ProductID, req.Quantity)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartItem(item))
}

func (h *HTTPHandler) SetCartLineQuantity(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}
	lineID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req setCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	item, removed, err := h.carts.SetCartLineQuantity(c.Request.Context(), customerID, lineID, *req.Quantity)
	if err != nil {
		h.abort(c, err)
		return
	}

	resp := setCartLineResponse{Removed: removed}
	if !removed {
		it := toCartItem(item)
		resp.Item = &it
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) RemoveCartLine(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}
	lineID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.carts.RemoveCartLine(c.Request.Context(), customerID, lineID); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Checkout honours an Idempotency-Key header so a retried request cannot
// place a second order.
func (h *HTTPHandler) Checkout(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}

	var req checkoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	var (
		order domain.Order
		err   error
	)
	if key := strings.TrimSpace(c.GetHeader(idempotencyHeader)); key != "" {
		order, err = h.orders.CheckoutOnce(c.Request.Context(), key, customerID, req.ShippingAddressID)
	} else {
		order, err = h.orders.Checkout(c.Request.Context(), customerID, req.ShippingAddressID)
	}
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrder(order))
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), customerID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(orders, toOrder))
}

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), customerID, orderID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(order))
}

func (h *HTTPHandler) AddOrderLine(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req orderLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	item, err := h.orders.AddOrderLineFromCart(c.Request.Context(), customerID, orderID, req.CartItemID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderItem(item))
}

func (h *HTTPHandler) RemoveOrderLine(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	if err := h.orders.RemoveOrderLine(c.Request.Context(), customerID, orderID, itemID); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ChooseShippingAddress(c *gin.Context) {
	customerID, ok := customerOf(c)
	if !ok {
		forbidden(c)
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req shippingAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	order, err := h.orders.ChooseShippingAddress(c.Request.Context(), customerID, orderID, req.AddressID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(order))
}
