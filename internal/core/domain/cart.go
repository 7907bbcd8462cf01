package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID         int64
	CustomerID int64
	Items      []CartItem
	CreatedAt  time.Time
}

type CartItem struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int
	CreatedAt time.Time
}

type QuoteLine struct {
	CartItemID int64
	ProductID  int64
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
}

type CartQuote struct {
	CartID int64
	Lines  []QuoteLine
	Total  decimal.Decimal
}
