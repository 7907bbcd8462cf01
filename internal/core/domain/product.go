package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          int64
	Name        string
	Description string
	Slug        string
}

// Slugify derives the category slug from its name.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
}

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	IsNew       bool
	Stock       int // never negative at rest
	CategoryID  int64
	SellerID    int64
	CreatedAt   time.Time
}

type ProductImage struct {
	ID        int64
	ProductID int64
	URL       string
}

type ProductFilter struct {
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID int64
	Query      string
	Limit      int
	Offset     int
}
