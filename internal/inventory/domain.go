package inventory

import (
	"fmt"
	"time"

	"github.com/lekka-app/lekka/internal/shared"
)

// DefaultMinStockLevel applies when a product is created without a threshold.
const DefaultMinStockLevel = 10

// StockStatus is derived from stock and min_stock_level.
type StockStatus string

const (
	// StatusOutOfStock means stock is zero or negative.
	StatusOutOfStock StockStatus = "out_of_stock"
	// StatusLowStock means 0 < stock <= min_stock_level.
	StatusLowStock StockStatus = "low_stock"
	// StatusInStock means stock is above the threshold.
	StatusInStock StockStatus = "in_stock"
)

// Product is an owner's stock-tracked item. Stock may be negative.
type Product struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Name          string      `json:"name"`
	SKU           string      `json:"sku,omitempty"`
	Stock         int         `json:"stock"`
	MinStockLevel int         `json:"min_stock_level"`
	InitialStock  int         `json:"initial_stock"`
	ImageURL      string      `json:"image_url,omitempty"`
	Status        StockStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

// StatusFor classifies a stock level against its threshold.
func StatusFor(stock, minLevel int) StockStatus {
	switch {
	case stock <= 0:
		return StatusOutOfStock
	case stock <= minLevel:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// withStatus fills the derived Status field.
func (p Product) withStatus() Product {
	p.Status = StatusFor(p.Stock, p.MinStockLevel)
	return p
}

// ProductInput is the create/update payload. Stock is honoured on create only.
type ProductInput struct {
	Name          string `json:"name" validate:"required,max=200"`
	SKU           string `json:"sku" validate:"max=64"`
	Stock         *int   `json:"stock" validate:"omitempty,gte=0"`
	MinStockLevel *int   `json:"min_stock_level" validate:"omitempty,gte=0"`
	ImageURL      string `json:"image_url" validate:"omitempty,url,max=2048"`
}

// StockCorrection sets stock to an absolute counted value.
type StockCorrection struct {
	Stock *int   `json:"stock" validate:"required,gte=0"`
	Note  string `json:"note" validate:"max=500"`
}

// Ordering values for ListFilter.
const (
	OrderNewest     = "newest"
	OrderStockAsc   = "stock"
	OrderNameAsc    = "name"
	defaultPageSize = 200
)

// ListFilter narrows product listings.
type ListFilter struct {
	Search  string
	Status  StockStatus
	OrderBy string
	Limit   int
}

// DeleteReferencedMessage is shown when transactions still reference a product.
const DeleteReferencedMessage = "cannot delete product: it is referenced by existing transactions"

// ErrProductNotFound indicates the product does not exist for the acting user.
var ErrProductNotFound = fmt.Errorf("product %w", shared.ErrNotFound)
