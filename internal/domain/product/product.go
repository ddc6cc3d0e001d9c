package product

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is a catalog item (immutable value object).
type Product struct {
	id          string
	name        string
	brand       string
	price       decimal.Decimal
	description string
	imageURL    string
	category    Category
	sizes       []string
	inventory   Inventory
}

// Attrs are the raw product attributes as read from storage.
type Attrs struct {
	ID          string
	Name        string
	Brand       string
	Price       decimal.Decimal
	Description string
	ImageURL    string
	Category    Category
	Sizes       []string
	Inventory   Inventory
}

// New validates and creates a Product.
// ID and name are required, price must be non-negative, category must be known.
func New(a Attrs) (Product, error) {
	if a.ID == "" {
		return Product{}, fmt.Errorf("product ID is required")
	}
	if a.Name == "" {
		return Product{}, fmt.Errorf("product %s: name is required", a.ID)
	}
	if a.Price.IsNegative() {
		return Product{}, fmt.Errorf("product %s: negative price %s", a.ID, a.Price)
	}
	if !a.Category.IsValid() {
		return Product{}, fmt.Errorf("product %s: unknown category %q", a.ID, a.Category)
	}
	var sizes []string
	if a.Sizes != nil {
		sizes = append([]string{}, a.Sizes...)
	}
	return Product{
		id:          a.ID,
		name:        a.Name,
		brand:       a.Brand,
		price:       a.Price,
		description: a.Description,
		imageURL:    a.ImageURL,
		category:    a.Category,
		sizes:       sizes,
		inventory:   a.Inventory,
	}, nil
}

// ID returns the product identifier.
func (p *Product) ID() string { return p.id }

// Name returns the display name.
func (p *Product) Name() string { return p.name }

// Brand returns the brand.
func (p *Product) Brand() string { return p.brand }

// Price returns the unit price.
func (p *Product) Price() decimal.Decimal { return p.price }

// Description returns the long description.
func (p *Product) Description() string { return p.description }

// ImageURL returns the product image location.
func (p *Product) ImageURL() string { return p.imageURL }

// Category returns the catalog category.
func (p *Product) Category() Category { return p.category }

// Sizes returns the available sizes in catalog order (nil when unsized).
func (p *Product) Sizes() []string { return p.sizes }

// Inventory returns the stock levels.
func (p *Product) Inventory() Inventory { return p.inventory }

// Scored is a product with the scores that ranked it.
// Scores are nil for strategies that do not compute them.
type Scored struct {
	Product  Product
	Semantic *float64
	Lexical  *float64
	Combined *float64
}

// Plain wraps unscored products, preserving order.
func Plain(products []Product) []Scored {
	out := make([]Scored, len(products))
	for i, p := range products {
		out[i] = Scored{Product: p}
	}
	return out
}

// PriceLine is the name and price of one product at lookup time.
type PriceLine struct {
	ID    string
	Name  string
	Price decimal.Decimal
}
