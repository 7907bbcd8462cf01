package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/core/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

type registerRequest struct {
	Username  string                `json:"username" binding:"required"`
	Password  string                `json:"password" binding:"required,min=6"`
	Email     string                `json:"email" binding:"omitempty,email"`
	FirstName string                `json:"first_name"`
	LastName  string                `json:"last_name"`
	Role      string                `json:"role" binding:"omitempty,oneof=customer seller"`
	Address   *service.AddressInput `json:"address"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type addressResponse struct {
	ID          int64  `json:"id"`
	Street      string `json:"street"`
	PostalCode  string `json:"postal_code"`
	PhoneNumber string `json:"phone_number"`
	City        string `json:"city"`
}

func toAddress(a domain.Address) addressResponse {
	return addressResponse{
		ID:          a.ID,
		Street:      a.Street,
		PostalCode:  a.PostalCode,
		PhoneNumber: a.PhoneNumber,
		City:        a.City,
	}
}

type profileResponse struct {
	ID       int64            `json:"id"`
	UserID   int64            `json:"user_id"`
	Role     domain.Role      `json:"role"`
	Username string           `json:"username"`
	FullName string           `json:"full_name,omitempty"`
	Email    string           `json:"email,omitempty"`
	Address  *addressResponse `json:"address,omitempty"`
}

func toProfile(p service.Profile) profileResponse {
	out := profileResponse{
		ID:       p.ID,
		UserID:   p.UserID,
		Role:     p.Role,
		Username: p.Username,
		FullName: p.FullName,
		Email:    p.Email,
	}
	if p.Address != nil {
		a := toAddress(*p.Address)
		out.Address = &a
	}
	return out
}

// toPublicProfile is what a non-owner may see of a seller.
func toPublicProfile(p service.Profile) profileResponse {
	return profileResponse{ID: p.ID, UserID: p.UserID, Role: p.Role, Username: p.Username}
}

type setAddressRequest struct {
	AddressID *int64 `json:"address_id"`
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type categoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
}

func toCategory(c domain.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Description: c.Description, Slug: c.Slug}
}

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsNew       bool            `json:"is_new"`
	Stock       int             `json:"stock"`
	CategoryID  int64           `json:"category_id" binding:"required"`

	// SellerID lets staff create products on behalf of a seller
	SellerID int64 `json:"seller_id"`
}

func (r productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		IsNew:       r.IsNew,
		Stock:       r.Stock,
		CategoryID:  r.CategoryID,
	}
}

type productResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       decimal.Decimal   `json:"price"`
	IsNew       bool              `json:"is_new"`
	Stock       int               `json:"stock"`
	CategoryID  int64             `json:"category_id"`
	SellerID    int64             `json:"seller_id"`
	CreatedAt   time.Time         `json:"created_at"`
	Category    *categoryResponse `json:"category,omitempty"`
	Images      []imageResponse   `json:"images,omitempty"`
}

func toProduct(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		IsNew:       p.IsNew,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		SellerID:    p.SellerID,
		CreatedAt:   p.CreatedAt,
	}
}

func toProductDetail(d service.ProductDetail) productResponse {
	out := toProduct(d.Product)
	if d.Category != nil {
		c := toCategory(*d.Category)
		out.Category = &c
	}
	for _, img := range d.Images {
		out.Images = append(out.Images, toImage(img))
	}
	return out
}

type imageRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	URL       string `json:"url" binding:"required"`
}

type imageResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	URL       string `json:"url"`
}

func toImage(img domain.ProductImage) imageResponse {
	return imageResponse{ID: img.ID, ProductID: img.ProductID, URL: img.URL}
}

type addCartLineRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

type setCartLineRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartItemResponse struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

func toCartItem(it domain.CartItem) cartItemResponse {
	return cartItemResponse{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity, CreatedAt: it.CreatedAt}
}

type cartResponse struct {
	ID         int64              `json:"id"`
	CustomerID int64              `json:"customer_id"`
	Items      []cartItemResponse `json:"items"`
}

func toCart(c domain.Cart) cartResponse {
	out := cartResponse{ID: c.ID, CustomerID: c.CustomerID, Items: make([]cartItemResponse, 0, len(c.Items))}
	for _, it := range c.Items {
		out.Items = append(out.Items, toCartItem(it))
	}
	return out
}

type setCartLineResponse struct {
	Item    *cartItemResponse `json:"item,omitempty"`
	Removed bool              `json:"removed"`
}

type quoteLineResponse struct {
	CartItemID int64           `json:"cart_item_id"`
	ProductID  int64           `json:"product_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type quoteResponse struct {
	CartID int64               `json:"cart_id"`
	Lines  []quoteLineResponse `json:"lines"`
	Total  decimal.Decimal     `json:"total"`
}

func toQuote(q domain.CartQuote) quoteResponse {
	out := quoteResponse{CartID: q.CartID, Total: q.Total, Lines: make([]quoteLineResponse, 0, len(q.Lines))}
	for _, l := range q.Lines {
		out.Lines = append(out.Lines, quoteLineResponse{
			CartItemID: l.CartItemID,
			ProductID:  l.ProductID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			LineTotal:  l.LineTotal,
		})
	}
	return out
}

type checkoutRequest struct {
	ShippingAddressID *int64 `json:"shipping_address_id"`
}

type orderLineRequest struct {
	CartItemID int64 `json:"cart_item_id" binding:"required"`
}

type shippingAddressRequest struct {
	AddressID int64 `json:"address_id" binding:"required"`
}

type orderItemResponse struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrderItem(it domain.OrderItem) orderItemResponse {
	return orderItemResponse{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity, CreatedAt: it.CreatedAt}
}

type orderResponse struct {
	ID                int64               `json:"id"`
	CustomerID        int64               `json:"customer_id"`
	ShippingAddressID *int64              `json:"shipping_address_id"`
	Items             []orderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
}

func toOrder(o domain.Order) orderResponse {
	out := orderResponse{
		ID:                o.ID,
		CustomerID:        o.CustomerID,
		ShippingAddressID: o.ShippingAddressID,
		CreatedAt:         o.CreatedAt,
		Items:             make([]orderItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, toOrderItem(it))
	}
	return out
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
