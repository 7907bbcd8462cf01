package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/core/service"
)

func (h *HTTPHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(categories, toCategory))
}

func (h *HTTPHandler) GetCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	cat, err := h.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategory(cat))
}

func (h *HTTPHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	cat, err := h.catalog.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCategory(cat))
}

func (h *HTTPHandler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	cat, err := h.catalog.UpdateCategory(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategory(cat))
}

func (h *HTTPHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseFilter(c *gin.Context) (domain.ProductFilter, bool) {
	var f domain.ProductFilter

	for name, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			badRequest(c, "invalid "+name)
			return f, false
		}
		*dst = &d
	}

	category, ok := queryID(c, "category")
	if !ok {
		return f, false
	}
	f.CategoryID = category
	f.Query = c.Query("q")

	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "invalid "+name)
			return f, false
		}
		*dst = n
	}
	return f, true
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(products, toProduct))
}

func (h *HTTPHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.catalog.GetProductDetail(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductDetail(detail))
}

// CreateProduct lists the product under the calling seller. Staff pick the
// seller explicitly.
func (h *HTTPHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	actor := actorFrom(c)
	sellerID := actor.SellerID
	if actor.IsStaff && req.SellerID != 0 {
		sellerID = req.SellerID
	}
	if !service.CanAccess(actor, service.Resource{Kind: service.ResourceProduct, SellerID: sellerID}) {
		forbidden(c)
		return
	}

	p, err := h.catalog.CreateProduct(c.Request.Context(), sellerID, req.input())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProduct(p))
}

// ownedProduct loads the product and checks the caller is its seller or staff.
func (h *HTTPHandler) ownedProduct(c *gin.Context, id int64) bool {
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return false
	}
	if !service.CanAccess(actorFrom(c), service.Resource{Kind: service.ResourceProduct, SellerID: p.SellerID}) {
		forbidden(c)
		return false
	}
	return true
}

func (h *HTTPHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok || !h.ownedProduct(c, id) {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	p, err := h.catalog.UpdateProduct(c.Request.Context(), id, req.input())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toProduct(p))
}

func (h *HTTPHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok || !h.ownedProduct(c, id) {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ListImages(c *gin.Context) {
	productID, ok := queryID(c, "product")
	if !ok {
		return
	}

	images, err := h.catalog.ListImages(c.Request.Context(), productID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(images, toImage))
}

func (h *HTTPHandler) AddImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if !h.ownedProduct(c, req.ProductID) {
		return
	}

	img, err := h.catalog.AddImage(c.Request.Context(), req.ProductID, req.URL)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toImage(img))
}

func (h *HTTPHandler) DeleteImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	img, err := h.catalog.GetImage(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	if !h.ownedProduct(c, img.ProductID) {
		return
	}

	if err := h.catalog.DeleteImage(c.Request.Context(), id); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
