package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/core/service"
)

const (
	actorKey          = "actor"
	idempotencyHeader = "Idempotency-Key"
)

type HTTPHandler struct {
	accounts *service.AccountService
	catalog  *service.CatalogService
	carts    *service.CartService
	orders   *service.OrderService
	log      *slog.Logger
}

func NewHTTPHandler(
	accounts *service.AccountService,
	catalog *service.CatalogService,
	carts *service.CartService,
	orders *service.OrderService,
	log *slog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		accounts: accounts,
		catalog:  catalog,
		carts:    carts,
		orders:   orders,
		log:      log,
	}
}

// Router builds the gin engine with every route mounted.
func (h *HTTPHandler) Router(allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", idempotencyHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/logout", h.authRequired(), h.Logout)

	shop := r.Group("/shop")
	shop.GET("/products", h.ListProducts)
	shop.GET("/products/:id", h.GetProduct)
	shop.GET("/categories", h.ListCategories)
	shop.GET("/categories/:id", h.GetCategory)
	shop.GET("/images", h.ListImages)

	shopWrite := shop.Group("", h.authRequired())
	shopWrite.POST("/products", h.CreateProduct)
	shopWrite.PUT("/products/:id", h.UpdateProduct)
	shopWrite.DELETE("/products/:id", h.DeleteProduct)
	shopWrite.POST("/categories", h.CreateCategory)
	shopWrite.PUT("/categories/:id", h.UpdateCategory)
	shopWrite.DELETE("/categories/:id", h.DeleteCategory)
	shopWrite.POST("/images", h.AddImage)
	shopWrite.DELETE("/images/:id", h.DeleteImage)

	profile := r.Group("/profile", h.authRequired())
	profile.GET("/customers", h.ListCustomers)
	profile.GET("/customers/:id", h.GetCustomer)
	profile.PUT("/customers/:id", h.UpdateCustomer)
	profile.DELETE("/customers/:id", h.DeleteCustomer)
	profile.GET("/sellers", h.ListSellers)
	profile.GET("/sellers/:id", h.GetSeller)
	profile.PUT("/sellers/:id", h.UpdateSeller)
	profile.DELETE("/sellers/:id", h.DeleteSeller)
	profile.GET("/addresses", h.ListAddresses)
	profile.POST("/addresses", h.CreateAddress)

	profile.GET("/cart", h.GetCart)
	profile.GET("/cart/quote", h.QuoteCart)
	profile.POST("/cart/items", h.AddCartLine)
	profile.PATCH("/cart/items/:id", h.SetCartLineQuantity)
	profile.DELETE("/cart/items/:id", h.RemoveCartLine)

	profile.GET("/orders", h.ListOrders)
	profile.POST("/orders", h.Checkout)
	profile.GET("/orders/:id", h.GetOrder)
	profile.POST("/orders/:id/items", h.AddOrderLine)
	profile.DELETE("/orders/:id/items/:itemId", h.RemoveOrderLine)
	profile.PUT("/orders/:id/address", h.ChooseShippingAddress)

	return r
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.log.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// authRequired resolves the bearer token into an actor stored on the context.
func (h *HTTPHandler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing token"})
			return
		}

		actor, err := h.accounts.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			h.abort(c, err)
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}
	}
	actor, _ := v.(domain.Actor)
	return actor
}

// customerOf returns the caller's customer id; carts and orders belong to
// customers only.
func customerOf(c *gin.Context) (int64, bool) {
	actor := actorFrom(c)
	if actor.CustomerID == 0 || !service.CanAccess(actor, service.Resource{Kind: service.ResourceCart, CustomerID: actor.CustomerID}) {
		return 0, false
	}
	return actor.CustomerID, true
}

func (h *HTTPHandler) abort(c *gin.Context, err error) {
	m, known := classify(err)
	if !known {
		h.log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(m.status, errorResponse{Error: m.message})
}

func forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
