package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/storeloom/console/internal/domain"
	"github.com/storeloom/console/pkg/pagination"
)

// Products is the product operation set against the platform's catalog
// endpoints.
type Products struct {
	g *Gateway
}

// FetchList retrieves one page of products with the given filters applied.
func (p *Products) FetchList(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Product, Page, error) {
	var items []domain.Product
	meta, err := p.g.call(ctx, "product.fetch_list", http.MethodGet, "/products",
		buildQuery(filters, page), "", nil, &items)
	if err != nil {
		return nil, Page{}, err
	}
	if items == nil {
		items = []domain.Product{}
	}
	if meta == nil {
		meta = &Page{Page: page.Page, PerPage: page.PerPage, Total: len(items), TotalPages: 1}
	}
	return items, *meta, nil
}

// FetchOne retrieves a single product by ID.
func (p *Products) FetchOne(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	_, err := p.g.call(ctx, "product.fetch_one", http.MethodGet, "/products/"+url.PathEscape(id),
		nil, "", nil, &product)
	return product, err
}

// Create submits a new product. Image attachments switch the request to
// multipart form encoding with non-scalar fields JSON-stringified.
func (p *Products) Create(ctx context.Context, input domain.CreateProductInput, images []Attachment) (domain.Product, error) {
	var product domain.Product
	if len(images) == 0 {
		_, err := p.g.callJSON(ctx, "product.create", http.MethodPost, "/products", input, &product)
		return product, err
	}

	fields, err := structToFields(input)
	if err != nil {
		return domain.Product{}, err
	}
	body, contentType, err := encodeMultipart(fields, images)
	if err != nil {
		return domain.Product{}, err
	}
	_, err = p.g.call(ctx, "product.create", http.MethodPost, "/products", nil, contentType, body, &product)
	return product, err
}

// Update submits a partial product update, optionally attaching new images.
func (p *Products) Update(ctx context.Context, id string, input domain.UpdateProductInput, images []Attachment) (domain.Product, error) {
	var product domain.Product
	path := "/products/" + url.PathEscape(id)
	if len(images) == 0 {
		_, err := p.g.callJSON(ctx, "product.update", http.MethodPatch, path, input, &product)
		return product, err
	}

	fields, err := structToFields(input)
	if err != nil {
		return domain.Product{}, err
	}
	body, contentType, err := encodeMultipart(fields, images)
	if err != nil {
		return domain.Product{}, err
	}
	_, err = p.g.call(ctx, "product.update", http.MethodPatch, path, nil, contentType, body, &product)
	return product, err
}

// Delete removes a single product.
func (p *Products) Delete(ctx context.Context, id string) error {
	_, err := p.g.call(ctx, "product.delete", http.MethodDelete, "/products/"+url.PathEscape(id),
		nil, "", nil, nil)
	return err
}

// BulkDelete removes a set of products in one call. The platform treats the
// batch atomically: either every ID is deleted or none are.
func (p *Products) BulkDelete(ctx context.Context, ids []string) error {
	payload := map[string]any{"ids": ids}
	_, err := p.g.callJSON(ctx, "product.bulk_delete", http.MethodPost, "/products/bulk-delete", payload, nil)
	return err
}

// BulkUpdate applies one patch to a set of products and returns the
// updated entities.
func (p *Products) BulkUpdate(ctx context.Context, ids []string, patch domain.BulkProductPatch) ([]domain.Product, error) {
	payload := map[string]any{"ids": ids, "patch": patch}
	var items []domain.Product
	_, err := p.g.callJSON(ctx, "product.bulk_update", http.MethodPost, "/products/bulk-update", payload, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}
