package catalog

import (
	"errors"
	"time"
)

// Product is one sellable item reps carry on their vans.
type Product struct {
	ID        int64
	SKU       string
	Name      string
	Unit      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrProductNotFound = errors.New("catalog: product not found")
	ErrSKUTaken        = errors.New("catalog: sku already registered")
	ErrEmptySKU        = errors.New("catalog: sku is required")
	ErrEmptyName       = errors.New("catalog: name is required")
)

// CreateProductInput carries the fields for registering a product.
type CreateProductInput struct {
	SKU  string
	Name string
	Unit string
}
