package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/storeloom/console/internal/domain"
	apperrors "github.com/storeloom/console/pkg/errors"
	"github.com/storeloom/console/pkg/pagination"
)

// Categories is the category operation set against the platform's catalog
// endpoints.
type Categories struct {
	g *Gateway
}

// FetchList retrieves one page of categories with the given filters applied.
func (c *Categories) FetchList(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, Page, error) {
	var items []domain.Category
	meta, err := c.g.call(ctx, "category.fetch_list", http.MethodGet, "/categories",
		buildQuery(filters, page), "", nil, &items)
	if err != nil {
		return nil, Page{}, err
	}
	if items == nil {
		items = []domain.Category{}
	}
	if meta == nil {
		meta = &Page{Page: page.Page, PerPage: page.PerPage, Total: len(items), TotalPages: 1}
	}
	return items, *meta, nil
}

// FetchOne retrieves a single category by ID.
func (c *Categories) FetchOne(ctx context.Context, id string) (domain.Category, error) {
	var category domain.Category
	_, err := c.g.call(ctx, "category.fetch_one", http.MethodGet, "/categories/"+url.PathEscape(id),
		nil, "", nil, &category)
	return category, err
}

// Create submits a new category. An optional image attachment switches the
// request to multipart form encoding.
func (c *Categories) Create(ctx context.Context, input domain.CreateCategoryInput, image *Attachment) (domain.Category, error) {
	var category domain.Category
	if image == nil {
		_, err := c.g.callJSON(ctx, "category.create", http.MethodPost, "/categories", input, &category)
		return category, err
	}

	fields, err := structToFields(input)
	if err != nil {
		return domain.Category{}, err
	}
	body, contentType, err := encodeMultipart(fields, []Attachment{*image})
	if err != nil {
		return domain.Category{}, err
	}
	_, err = c.g.call(ctx, "category.create", http.MethodPost, "/categories", nil, contentType, body, &category)
	return category, err
}

// Update submits a partial category update. An optional image attachment
// switches the request to multipart form encoding.
func (c *Categories) Update(ctx context.Context, id string, input domain.UpdateCategoryInput, image *Attachment) (domain.Category, error) {
	var category domain.Category
	path := "/categories/" + url.PathEscape(id)
	if image == nil {
		_, err := c.g.callJSON(ctx, "category.update", http.MethodPatch, path, input, &category)
		return category, err
	}

	fields, err := structToFields(input)
	if err != nil {
		return domain.Category{}, err
	}
	body, contentType, err := encodeMultipart(fields, []Attachment{*image})
	if err != nil {
		return domain.Category{}, err
	}
	_, err = c.g.call(ctx, "category.update", http.MethodPatch, path, nil, contentType, body, &category)
	return category, err
}

// Delete removes a category. The platform rejects deletion of categories
// that still have children or assigned products; that rejection surfaces as
// an operation error with the platform's reason.
func (c *Categories) Delete(ctx context.Context, id string) error {
	_, err := c.g.call(ctx, "category.delete", http.MethodDelete, "/categories/"+url.PathEscape(id),
		nil, "", nil, nil)
	return err
}

// Reorder submits new sibling positions for a set of categories and returns
// the platform's view of the full collection afterwards.
func (c *Categories) Reorder(ctx context.Context, updates []domain.SortOrderUpdate) ([]domain.Category, error) {
	payload := map[string]any{"categories": updates}
	var items []domain.Category
	_, err := c.g.callJSON(ctx, "category.reorder", http.MethodPut, "/categories/reorder", payload, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Reparent moves a category under a new parent, or to the root when
// parentID is nil.
func (c *Categories) Reparent(ctx context.Context, id string, parentID *string) (domain.Category, error) {
	payload := map[string]any{"parent_id": parentID}
	var category domain.Category
	_, err := c.g.callJSON(ctx, "category.reparent", http.MethodPut,
		"/categories/"+url.PathEscape(id)+"/parent", payload, &category)
	return category, err
}

// structToFields flattens a struct into the field map the multipart encoder
// consumes, going through JSON so field names and omitempty rules match the
// JSON encoding exactly.
func structToFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrap(err, "encode multipart fields")
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperrors.Wrap(err, "decode multipart fields")
	}
	return fields, nil
}
