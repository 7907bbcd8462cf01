package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/core/service"
)

func (h *HTTPHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	p, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.Role(req.Role),
		Address:   req.Address,
	})
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProfile(p))
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	token, expiresAt, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *HTTPHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), actorFrom(c)); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ListAddresses(c *gin.Context) {
	addresses, err := h.accounts.ListAddresses(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(addresses, toAddress))
}

func (h *HTTPHandler) CreateAddress(c *gin.Context) {
	var req service.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	a, err := h.accounts.CreateAddress(c.Request.Context(), actorFrom(c).UserID, req)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAddress(a))
}

// ListCustomers is for staff only.
func (h *HTTPHandler) ListCustomers(c *gin.Context) {
	if !service.CanAccess(actorFrom(c), service.Resource{Kind: service.ResourceProfile}) {
		forbidden(c)
		return
	}

	customers, err := h.accounts.ListCustomers(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(customers, toProfile))
}

// ownedProfile loads a profile and checks the caller may act on it.
func (h *HTTPHandler) ownedProfile(c *gin.Context, load func(*gin.Context, int64) (service.Profile, error)) (service.Profile, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return service.Profile{}, false
	}

	p, err := load(c, id)
	if err != nil {
		h.abort(c, err)
		return service.Profile{}, false
	}
	if !service.CanAccess(actorFrom(c), service.Resource{Kind: service.ResourceProfile, UserID: p.UserID}) {
		forbidden(c)
		return service.Profile{}, false
	}
	return p, true
}

func (h *HTTPHandler) loadCustomer(c *gin.Context, id int64) (service.Profile, error) {
	return h.accounts.GetCustomer(c.Request.Context(), id)
}

func (h *HTTPHandler) loadSeller(c *gin.Context, id int64) (service.Profile, error) {
	return h.accounts.GetSeller(c.Request.Context(), id)
}

func (h *HTTPHandler) GetCustomer(c *gin.Context) {
	p, ok := h.ownedProfile(c, h.loadCustomer)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toProfile(p))
}

func (h *HTTPHandler) UpdateCustomer(c *gin.Context) {
	p, ok := h.ownedProfile(c, h.loadCustomer)
	if !ok {
		return
	}

	var req setAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	updated, err := h.accounts.SetCustomerAddress(c.Request.Context(), p.ID, req.AddressID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(updated))
}

func (h *HTTPHandler) DeleteCustomer(c *gin.Context) {
	p, ok := h.ownedProfile(c, h.loadCustomer)
	if !ok {
		return
	}
	if err := h.accounts.DeleteCustomer(c.Request.Context(), p.ID); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSellers shows full profiles to their owners and staff, and the public
// fields to everyone else.
func (h *HTTPHandler) ListSellers(c *gin.Context) {
	sellers, err := h.accounts.ListSellers(c.Request.Context(), c.Query("city"))
	if err != nil {
		h.abort(c, err)
		return
	}

	actor := actorFrom(c)
	out := make([]profileResponse, 0, len(sellers))
	for _, p := range sellers {
		if service.CanAccess(actor, service.Resource{Kind: service.ResourceProfile, UserID: p.UserID}) {
			out = append(out, toProfile(p))
		} else {
			out = append(out, toPublicProfile(p))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) GetSeller(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.accounts.GetSeller(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	if service.CanAccess(actorFrom(c), service.Resource{Kind: service.ResourceProfile, UserID: p.UserID}) {
		c.JSON(http.StatusOK, toProfile(p))
		return
	}
	c.JSON(http.StatusOK, toPublicProfile(p))
}

func (h *HTTPHandler) UpdateSeller(c *gin.Context) {
	p, ok := h.ownedProfile(c, h.loadSeller)
	if !ok {
		return
	}

	var req setAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	updated, err := h.accounts.SetSellerAddress(c.Request.Context(), p.ID, req.AddressID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(updated))
}

func (h *HTTPHandler) DeleteSeller(c *gin.Context) {
	p, ok := h.ownedProfile(c, h.loadSeller)
	if !ok {
		return
	}
	if err := h.accounts.DeleteSeller(c.Request.Context(), p.ID); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
