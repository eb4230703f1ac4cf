package domain

import (
	"cmp"
	"slices"
	"strings"
)

// ProductCounts aggregates per-status and stock-level totals over a product
// collection in a single pass.
type ProductCounts struct {
	Total      int `json:"total"`
	Draft      int `json:"draft"`
	Published  int `json:"published"`
	Archived   int `json:"archived"`
	Active     int `json:"active"`
	Featured   int `json:"featured"`
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_of_stock"`
	LowStock   int `json:"low_stock"`
}

// CountProducts computes collection totals without materializing any
// intermediate filtered slices.
func CountProducts(products []Product) ProductCounts {
	var c ProductCounts
	for _, p := range products {
		c.Total++
		switch p.Status {
		case ProductStatusDraft:
			c.Draft++
		case ProductStatusPublished:
			c.Published++
		case ProductStatusArchived:
			c.Archived++
		}
		if p.IsActive {
			c.Active++
		}
		if p.IsFeatured {
			c.Featured++
		}
		switch {
		case p.Quantity <= 0:
			c.OutOfStock++
		case p.Quantity <= p.LowStockThreshold:
			c.LowStock++
			c.InStock++
		default:
			c.InStock++
		}
	}
	return c
}

// ActiveProducts returns the products marked active.
func ActiveProducts(products []Product) []Product {
	return filterProducts(products, func(p Product) bool { return p.IsActive })
}

// FeaturedProducts returns the active products flagged as featured.
func FeaturedProducts(products []Product) []Product {
	return filterProducts(products, func(p Product) bool { return p.IsActive && p.IsFeatured })
}

// InStockProducts returns products with positive quantity.
func InStockProducts(products []Product) []Product {
	return filterProducts(products, func(p Product) bool { return p.Quantity > 0 })
}

// OutOfStockProducts returns products with zero or negative quantity.
func OutOfStockProducts(products []Product) []Product {
	return filterProducts(products, func(p Product) bool { return p.Quantity <= 0 })
}

// LowStockProducts returns in-stock products at or below their low stock
// threshold.
func LowStockProducts(products []Product) []Product {
	return filterProducts(products, func(p Product) bool {
		return p.Quantity > 0 && p.Quantity <= p.LowStockThreshold
	})
}

// ProductsByStatus returns products with the given status.
func ProductsByStatus(products []Product, status string) []Product {
	return filterProducts(products, func(p Product) bool { return p.Status == status })
}

// ProductsInCategory returns products assigned to the given category.
func ProductsInCategory(products []Product, categoryID string) []Product {
	return filterProducts(products, func(p Product) bool {
		return p.CategoryID != nil && *p.CategoryID == categoryID
	})
}

// SearchProducts returns products whose name, SKU or description contains
// the query, case-insensitively. An empty query matches everything.
func SearchProducts(products []Product, query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(products)
	}
	return filterProducts(products, func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.SKU), q) ||
			strings.Contains(strings.ToLower(p.Description), q)
	})
}

// ActiveCategories returns the categories marked active, preserving order.
func ActiveCategories(categories []Category) []Category {
	active := []Category{}
	for _, c := range categories {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return active
}

func filterProducts(products []Product, keep func(Product) bool) []Product {
	matched := []Product{}
	for _, p := range products {
		if keep(p) {
			matched = append(matched, p)
		}
	}
	return matched
}

// SortKey names a product collection ordering.
type SortKey string

// Supported product sort keys.
const (
	SortByName      SortKey = "name"
	SortByPrice     SortKey = "price"
	SortByQuantity  SortKey = "quantity"
	SortByCreatedAt SortKey = "created_at"
	SortByUpdatedAt SortKey = "updated_at"
)

// SortProducts returns a copy of the collection ordered by the given key.
// The sort is stable; descending reverses the comparison. An unknown key
// returns the collection unchanged.
func SortProducts(products []Product, key SortKey, descending bool) []Product {
	sorted := slices.Clone(products)
	var byKey func(a, b Product) int
	switch key {
	case SortByName:
		byKey = func(a, b Product) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	case SortByPrice:
		byKey = func(a, b Product) int { return cmp.Compare(a.Price, b.Price) }
	case SortByQuantity:
		byKey = func(a, b Product) int { return cmp.Compare(a.Quantity, b.Quantity) }
	case SortByCreatedAt:
		byKey = func(a, b Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortByUpdatedAt:
		byKey = func(a, b Product) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		return sorted
	}
	if descending {
		inner := byKey
		byKey = func(a, b Product) int { return -inner(a, b) }
	}
	slices.SortStableFunc(sorted, byKey)
	return sorted
}
