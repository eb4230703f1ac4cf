package domain

import "time"

// Category represents a storefront category with optional hierarchical
// nesting. IDs are assigned by the commerce platform and immutable; Children
// is only populated on nodes of a derived tree, never on collection entries.
type Category struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	ParentID    *string     `json:"parent_id,omitempty"`
	SortOrder   int         `json:"sort_order"`
	IsActive    bool        `json:"is_active"`
	ImageURL    *string     `json:"image_url,omitempty"`
	IconURL     *string     `json:"icon_url,omitempty"`
	Description *string     `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Children    []*Category `json:"children,omitempty"`
}

// EntityID returns the unique identifier of the category.
func (c Category) EntityID() string { return c.ID }

// CreateCategoryInput holds the parameters for creating a category.
type CreateCategoryInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Slug        string  `json:"slug,omitempty"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	SortOrder   int     `json:"sort_order" validate:"gte=0"`
	IsActive    *bool   `json:"is_active"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	IconURL     *string `json:"icon_url" validate:"omitempty,url"`
	Description *string `json:"description"`
}

// UpdateCategoryInput holds the parameters for a partial category update.
// Nil fields are left untouched by the platform.
type UpdateCategoryInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Slug        *string `json:"slug" validate:"omitempty,max=255"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active"`
	ImageURL    *string `json:"image_url" validate:"omitempty"`
	IconURL     *string `json:"icon_url" validate:"omitempty"`
	Description *string `json:"description"`
}

// SortOrderUpdate pairs a category ID with its new sibling position for the
// reorder operation.
type SortOrderUpdate struct {
	ID        string `json:"id" validate:"required"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}
