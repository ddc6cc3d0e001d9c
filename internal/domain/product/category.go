package product

// Columns is the select list every product-shaped statement uses.
const Columns = "product_id, name, brand, price, description, image_url, category, available_sizes, inventory"

// Category is the closed set of catalog categories.
type Category string

// Catalog categories.
const (
	RunningShoes     Category = "Running Shoes"
	TrainingShoes    Category = "Training Shoes"
	FitnessEquipment Category = "Fitness Equipment"
	Apparel          Category = "Apparel"
	Accessories      Category = "Accessories"
	Recovery         Category = "Recovery"
)

// Categories returns every category in catalog display order.
func Categories() []Category {
	return []Category{RunningShoes, TrainingShoes, FitnessEquipment, Apparel, Accessories, Recovery}
}

// ShoeCategories returns the categories served by a generic shoe query.
func ShoeCategories() []Category {
	return []Category{RunningShoes, TrainingShoes}
}

// IsValid checks if the category is one of the catalog values.
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}
