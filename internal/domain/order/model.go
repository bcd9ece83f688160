package order

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/healthhub/api/internal/domain/product"
	"github.com/healthhub/api/internal/platform/store"
)

const (
	OrdersTable = "orders"
	ItemsTable  = "order_items"

	StatusPending = "pending"
)

// Order is an order header with its line items and their products.
type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Items     []Item          `json:"order_items"`
}

// Item is a persisted line. Price is the catalog price when the order was
// placed and never changes afterwards.
type Item struct {
	ID        string           `json:"id"`
	OrderID   string           `json:"order_id"`
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	CreatedAt *time.Time       `json:"created_at,omitempty"`
	Product   *product.Product `json:"product,omitempty"`
}

// header and newItem are the insert shapes; ids and created_at come from
// the store.
type header struct {
	UserID string          `json:"user_id"`
	Total  decimal.Decimal `json:"total"`
	Status string          `json:"status"`
}

type newItem struct {
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// LineItem is one requested (product, quantity) pair. A client-sent price
// is accepted so older clients keep working, and is never read.
type LineItem struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	Price     json.RawMessage `json:"price,omitempty"`
}

type PlaceOrderRequest struct {
	Products []LineItem `json:"products" validate:"required,min=1,dive"`
}

// expanded is the read shape of an order: items with their product rows.
var expanded = store.HasMany("order_items", ItemsTable, "order_id",
	store.BelongsTo("product", product.Table, "product_id"),
)
