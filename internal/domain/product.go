package domain

import "time"

// Product status constants.
const (
	ProductStatusDraft     = "draft"
	ProductStatusPublished = "published"
	ProductStatusArchived  = "archived"
)

// Product represents a product in a tenant's catalog. Price is in minor
// currency units.
type Product struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Slug              string         `json:"slug"`
	SKU               string         `json:"sku"`
	Description       string         `json:"description"`
	CategoryID        *string        `json:"category_id,omitempty"`
	Status            string         `json:"status"`
	Price             int64          `json:"price"`
	Currency          string         `json:"currency"`
	Quantity          int            `json:"quantity"`
	LowStockThreshold int            `json:"low_stock_threshold"`
	IsActive          bool           `json:"is_active"`
	IsFeatured        bool           `json:"is_featured"`
	Images            []ProductImage `json:"images,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// EntityID returns the unique identifier of the product.
func (p Product) EntityID() string { return p.ID }

// ProductImage represents an image attached to a product.
type ProductImage struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	AltText   string `json:"alt_text"`
	SortOrder int    `json:"sort_order"`
	IsPrimary bool   `json:"is_primary"`
}

// ValidStatuses returns the set of valid product statuses.
func ValidStatuses() []string {
	return []string{ProductStatusDraft, ProductStatusPublished, ProductStatusArchived}
}

// IsValidStatus checks whether the given status string is a valid product status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name              string         `json:"name" validate:"required,min=1,max=255"`
	Slug              string         `json:"slug,omitempty"`
	SKU               string         `json:"sku" validate:"omitempty,max=64"`
	Description       string         `json:"description"`
	CategoryID        *string        `json:"category_id" validate:"omitempty,uuid"`
	Price             int64          `json:"price" validate:"gte=0"`
	Currency          string         `json:"currency" validate:"required,len=3"`
	Quantity          int            `json:"quantity" validate:"gte=0"`
	LowStockThreshold int            `json:"low_stock_threshold" validate:"gte=0"`
	IsActive          *bool          `json:"is_active"`
	IsFeatured        *bool          `json:"is_featured"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// UpdateProductInput holds the parameters for a partial product update.
// Nil fields are left untouched by the platform. AddImageIDs/RemoveImageIDs
// carry image attachment instructions alongside the field patch.
type UpdateProductInput struct {
	Name              *string        `json:"name" validate:"omitempty,min=1,max=255"`
	Slug              *string        `json:"slug" validate:"omitempty,max=255"`
	SKU               *string        `json:"sku" validate:"omitempty,max=64"`
	Description       *string        `json:"description"`
	CategoryID        *string        `json:"category_id" validate:"omitempty,uuid"`
	Status            *string        `json:"status" validate:"omitempty,oneof=draft published archived"`
	Price             *int64         `json:"price" validate:"omitempty,gte=0"`
	Currency          *string        `json:"currency" validate:"omitempty,len=3"`
	Quantity          *int           `json:"quantity" validate:"omitempty,gte=0"`
	LowStockThreshold *int           `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	IsActive          *bool          `json:"is_active"`
	IsFeatured        *bool          `json:"is_featured"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	RemoveImageIDs    []string       `json:"remove_image_ids,omitempty"`
}

// BulkProductPatch is the field set applied to every product in a
// bulk-update. Only non-nil fields are applied.
type BulkProductPatch struct {
	Status     *string `json:"status" validate:"omitempty,oneof=draft published archived"`
	IsActive   *bool   `json:"is_active"`
	IsFeatured *bool   `json:"is_featured"`
	CategoryID *string `json:"category_id" validate:"omitempty,uuid"`
}

// Apply returns a copy of the product with the patch's non-nil fields set.
func (p BulkProductPatch) Apply(product Product) Product {
	if p.Status != nil {
		product.Status = *p.Status
	}
	if p.IsActive != nil {
		product.IsActive = *p.IsActive
	}
	if p.IsFeatured != nil {
		product.IsFeatured = *p.IsFeatured
	}
	if p.CategoryID != nil {
		product.CategoryID = p.CategoryID
	}
	return product
}
