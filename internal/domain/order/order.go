package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusConfirmed is the only status this service writes.
const StatusConfirmed = "confirmed"

// MaxQuantity bounds a single line item.
const MaxQuantity = 99

// Item is a requested line item before pricing.
type Item struct {
	productID string
	quantity  int
	size      string
}

// NewItem validates a requested line item. Zero quantity means one.
func NewItem(productID string, quantity int, size string) (Item, error) {
	if productID == "" {
		return Item{}, fmt.Errorf("product ID is required")
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > MaxQuantity {
		return Item{}, fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)
	}
	return Item{productID: productID, quantity: quantity, size: size}, nil
}

// ProductID returns the requested product.
func (i *Item) ProductID() string { return i.productID }

// Quantity returns the requested unit count.
func (i *Item) Quantity() int { return i.quantity }

// Size returns the requested size, empty when unsized.
func (i *Item) Size() string { return i.size }

// Line is a priced line item.
type Line struct {
	ProductID string
	Name      string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns unit price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Pricing holds the tax and shipping rules.
type Pricing struct {
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	DeliveryDaysMin       int
	DeliveryDaysMax       int
}

// DefaultPricing returns the store's standard rules.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:               decimal.RequireFromString("0.08"),
		ShippingFee:           decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.RequireFromString("50"),
		DeliveryDaysMin:       3,
		DeliveryDaysMax:       5,
	}
}

// Quote is a priced basket.
type Quote struct {
	Lines    []Line
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// FreeShipping reports whether the shipping fee was waived.
func (q Quote) FreeShipping() bool { return q.Shipping.IsZero() }

// Price computes subtotal, tax (rounded to cents), shipping and total.
func (p Pricing) Price(lines []Line) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)
	shipping := p.ShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return Quote{
		Lines:    lines,
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// EstimatedDelivery returns the latest promised delivery date from placedAt.
func (p Pricing) EstimatedDelivery(placedAt time.Time) time.Time {
	return placedAt.AddDate(0, 0, p.DeliveryDaysMax)
}

// Confirmation is the result of a placed order.
type Confirmation struct {
	OrderID           string
	CustomerID        string
	Status            string
	Quote             Quote
	PlacedAt          time.Time
	EstimatedDelivery time.Time
}

// NewID generates an order identifier of the form ORD-1A2B3C4D.
func NewID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:8])
}
