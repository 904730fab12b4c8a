package models

import "github.com/shopspring/decimal"

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// OrderLine is one entry of a place-order request. Name and price are never
// sent: the backend re-prices every line.
type OrderLine struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type PlacedOrder struct {
	OrderID    int64           `json:"order_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Message    string          `json:"message,omitempty"`
}

type OrderItem struct {
	MenuItemID int64           `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// Order is a row of the user's order history.
type Order struct {
	ID         int64           `json:"id"`
	Items      []OrderItem     `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
	CreatedAt  string          `json:"created_at"`
}
