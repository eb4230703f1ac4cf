package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProducts() []Product {
	return []Product{
		{ID: "p1", Name: "Alpha Mug", SKU: "MUG-001", Status: ProductStatusPublished, IsActive: true, IsFeatured: true, Quantity: 10, LowStockThreshold: 3, Price: 1200},
		{ID: "p2", Name: "Beta Shirt", SKU: "SHI-002", Status: ProductStatusPublished, IsActive: true, Quantity: 2, LowStockThreshold: 5, Price: 2500},
		{ID: "p3", Name: "Gamma Poster", SKU: "POS-003", Status: ProductStatusDraft, IsActive: false, IsFeatured: true, Quantity: 0, LowStockThreshold: 2, Price: 800},
		{ID: "p4", Name: "Delta Lamp", SKU: "LAM-004", Description: "desk lamp with alpha glow", Status: ProductStatusArchived, IsActive: true, Quantity: 7, LowStockThreshold: 1, Price: 4500, CategoryID: strPtr("cat-1")},
	}
}

func TestCountProducts(t *testing.T) {
	counts := CountProducts(sampleProducts())

	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, 1, counts.Draft)
	assert.Equal(t, 2, counts.Published)
	assert.Equal(t, 1, counts.Archived)
	assert.Equal(t, 3, counts.Active)
	assert.Equal(t, 2, counts.Featured)
	assert.Equal(t, 3, counts.InStock)
	assert.Equal(t, 1, counts.OutOfStock)
	assert.Equal(t, 1, counts.LowStock)
}

func TestCountProductsEmpty(t *testing.T) {
	assert.Equal(t, ProductCounts{}, CountProducts(nil))
}

func TestProductSelectors(t *testing.T) {
	products := sampleProducts()

	tests := []struct {
		name    string
		selectF func([]Product) []Product
		wantIDs []string
	}{
		{"active", ActiveProducts, []string{"p1", "p2", "p4"}},
		{"featured excludes inactive", FeaturedProducts, []string{"p1"}},
		{"in stock", InStockProducts, []string{"p1", "p2", "p4"}},
		{"out of stock", OutOfStockProducts, []string{"p3"}},
		{"low stock excludes out of stock", LowStockProducts, []string{"p2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.selectF(products)
			ids := make([]string, len(got))
			for i, p := range got {
				ids[i] = p.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestProductsByStatus(t *testing.T) {
	published := ProductsByStatus(sampleProducts(), ProductStatusPublished)
	require.Len(t, published, 2)
	assert.Equal(t, "p1", published[0].ID)
	assert.Equal(t, "p2", published[1].ID)
}

func TestProductsInCategory(t *testing.T) {
	matched := ProductsInCategory(sampleProducts(), "cat-1")
	require.Len(t, matched, 1)
	assert.Equal(t, "p4", matched[0].ID)

	assert.Empty(t, ProductsInCategory(sampleProducts(), "cat-2"))
}

func TestSearchProducts(t *testing.T) {
	products := sampleProducts()

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"matches name case-insensitively", "ALPHA", []string{"p1", "p4"}},
		{"matches sku", "pos-003", []string{"p3"}},
		{"matches description", "desk lamp", []string{"p4"}},
		{"empty query matches all", "  ", []string{"p1", "p2", "p3", "p4"}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchProducts(products, tt.query)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestSortProducts(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	products := []Product{
		{ID: "p1", Name: "banana", Price: 300, Quantity: 5, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "p2", Name: "Apple", Price: 100, Quantity: 9, CreatedAt: base},
		{ID: "p3", Name: "cherry", Price: 200, Quantity: 1, CreatedAt: base.Add(time.Hour)},
	}

	t.Run("by name is case-insensitive", func(t *testing.T) {
		got := SortProducts(products, SortByName, false)
		assert.Equal(t, "p2", got[0].ID)
		assert.Equal(t, "p1", got[1].ID)
		assert.Equal(t, "p3", got[2].ID)
	})

	t.Run("by price descending", func(t *testing.T) {
		got := SortProducts(products, SortByPrice, true)
		assert.Equal(t, "p1", got[0].ID)
		assert.Equal(t, "p3", got[1].ID)
		assert.Equal(t, "p2", got[2].ID)
	})

	t.Run("by created at", func(t *testing.T) {
		got := SortProducts(products, SortByCreatedAt, false)
		assert.Equal(t, "p2", got[0].ID)
		assert.Equal(t, "p3", got[1].ID)
		assert.Equal(t, "p1", got[2].ID)
	})

	t.Run("unknown key leaves order unchanged", func(t *testing.T) {
		got := SortProducts(products, SortKey("bogus"), false)
		assert.Equal(t, "p1", got[0].ID)
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		_ = SortProducts(products, SortByPrice, false)
		assert.Equal(t, "p1", products[0].ID)
	})
}

func TestActiveCategories(t *testing.T) {
	categories := []Category{
		{ID: "c1", IsActive: true},
		{ID: "c2", IsActive: false},
		{ID: "c3", IsActive: true},
	}

	active := ActiveCategories(categories)
	require.Len(t, active, 2)
	assert.Equal(t, "c1", active[0].ID)
	assert.Equal(t, "c3", active[1].ID)
}

func TestListFilter(t *testing.T) {
	t.Run("merge overlays keys without mutating", func(t *testing.T) {
		base := ListFilter{"status": "draft", "search": "mug"}
		merged := base.Merge(ListFilter{"status": "published", "is_active": "true"})

		assert.Equal(t, ListFilter{"status": "published", "search": "mug", "is_active": "true"}, merged)
		assert.Equal(t, "draft", base["status"])
	})

	t.Run("active drops sentinels and empties", func(t *testing.T) {
		f := ListFilter{"status": FilterAll, "search": "", "is_active": "true"}
		assert.Equal(t, ListFilter{"is_active": "true"}, f.Active())
	})
}

func TestBulkProductPatchApply(t *testing.T) {
	p := Product{ID: "p1", Status: ProductStatusDraft, IsActive: false}
	published := ProductStatusPublished
	active := true

	patched := BulkProductPatch{Status: &published, IsActive: &active}.Apply(p)

	assert.Equal(t, ProductStatusPublished, patched.Status)
	assert.True(t, patched.IsActive)
	assert.Equal(t, ProductStatusDraft, p.Status)
}
