package product

import "sort"

// Inventory is stock held either per size or as a single quantity.
type Inventory struct {
	bySize   map[string]int
	quantity int
}

// NewSizedInventory creates per-size stock. The map is copied.
func NewSizedInventory(bySize map[string]int) Inventory {
	m := make(map[string]int, len(bySize))
	for k, v := range bySize {
		m[k] = v
	}
	return Inventory{bySize: m}
}

// NewQuantityInventory creates unsized stock.
func NewQuantityInventory(quantity int) Inventory {
	return Inventory{quantity: quantity}
}

// Sized reports whether stock is tracked per size.
func (i Inventory) Sized() bool { return i.bySize != nil }

// Size returns the stock for one size. Unknown sizes have zero stock.
func (i Inventory) Size(size string) int { return i.bySize[size] }

// Total returns the unsized quantity, or the sum over all sizes.
func (i Inventory) Total() int {
	if !i.Sized() {
		return i.quantity
	}
	total := 0
	for _, q := range i.bySize {
		total += q
	}
	return total
}

// BySize returns a copy of the per-size stock (nil when unsized).
func (i Inventory) BySize() map[string]int {
	if i.bySize == nil {
		return nil
	}
	m := make(map[string]int, len(i.bySize))
	for k, v := range i.bySize {
		m[k] = v
	}
	return m
}

// SizeKeys returns the stocked sizes in lexical order.
func (i Inventory) SizeKeys() []string {
	keys := make([]string, 0, len(i.bySize))
	for k := range i.bySize {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
