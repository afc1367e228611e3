package order

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID    string
	Name  string
	Email string
	Role  string
}

type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	IsActive      bool
}

type Order struct {
	ID              string
	UserID          string
	Status          Status
	TotalAmount     decimal.Decimal
	ShippingAddress json.RawMessage
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderRow is a raw orders row as delivered by an event trigger.
// Numeric columns arrive as text.
type OrderRow struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Status          string          `json:"status"`
	TotalAmount     string          `json:"total_amount"`
	ShippingAddress json.RawMessage `json:"shipping_address"`
	Notes           *string         `json:"notes"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderInput struct {
	UserID          string      `json:"user_id"`
	Items           []ItemInput `json:"items"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	Notes           string      `json:"notes,omitempty"`
}

type PlaceOrderResult struct {
	OrderID     string          `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	ItemsCount  int             `json:"items_count"`
	Message     string          `json:"message"`
}
