package product

import (
	"time"

	"github.com/shopspring/decimal"
)

const Table = "products"

type Product struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url"`
	Available   bool            `json:"available"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
}

// CatalogEntry is the authoritative price and availability of a product at
// lookup time.
type CatalogEntry struct {
	ID        string          `json:"id"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

type CreateRequest struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	ImageURL    *string          `json:"image_url"`
	Available   *bool            `json:"available"`
}

// UpdateRequest carries only the fields being changed.
type UpdateRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url"`
	Available   *bool            `json:"available"`
}

func (r UpdateRequest) values() map[string]any {
	v := map[string]any{}
	if r.Title != nil {
		v["title"] = *r.Title
	}
	if r.Description != nil {
		v["description"] = *r.Description
	}
	if r.Price != nil {
		v["price"] = *r.Price
	}
	if r.ImageURL != nil {
		v["image_url"] = *r.ImageURL
	}
	if r.Available != nil {
		v["available"] = *r.Available
	}
	return v
}
