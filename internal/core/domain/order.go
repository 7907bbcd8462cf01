package domain

import "time"

type Order struct {
	ID                int64
	CustomerID        int64
	ShippingAddressID *int64
	Items             []OrderItem
	CreatedAt         time.Time
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	CreatedAt time.Time
}

type OrderPlaced struct {
	EventID    string    `json:"event_id"`
	OrderID    int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	Lines      []Line    `json:"lines"`
	PlacedAt   time.Time `json:"placed_at"`
}

type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
