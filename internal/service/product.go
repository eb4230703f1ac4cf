package service

import (
	"context"
	"log/slog"

	"github.com/storeloom/console/internal/domain"
	"github.com/storeloom/console/internal/event"
	"github.com/storeloom/console/internal/gateway"
	"github.com/storeloom/console/internal/store"
	"github.com/storeloom/console/pkg/pagination"
	"github.com/storeloom/console/pkg/slug"
)

// ProductSnapshot is the product store snapshot. Products carry no derived
// tree; the derived-view selectors operate on the flat collection.
type ProductSnapshot = store.Snapshot[domain.Product, struct{}]

// ProductAPI is the upstream surface the product service depends on.
type ProductAPI interface {
	FetchList(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Product, gateway.Page, error)
	FetchOne(ctx context.Context, id string) (domain.Product, error)
	Create(ctx context.Context, input domain.CreateProductInput, images []gateway.Attachment) (domain.Product, error)
	Update(ctx context.Context, id string, input domain.UpdateProductInput, images []gateway.Attachment) (domain.Product, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) error
	BulkUpdate(ctx context.Context, ids []string, patch domain.BulkProductPatch) ([]domain.Product, error)
}

// ProductService owns the product collection state and drives its
// operations against the platform.
type ProductService struct {
	st     *store.Store[domain.Product, struct{}]
	disp   *dispatcher[domain.Product, struct{}]
	api    ProductAPI
	events *event.Publisher
	logger *slog.Logger
}

// NewProductService creates the service with a fresh empty store.
func NewProductService(api ProductAPI, events *event.Publisher, log *slog.Logger) *ProductService {
	st := store.New(store.Config[domain.Product, struct{}]{
		Name:   "products",
		Logger: log,
	})
	return &ProductService{
		st:     st,
		disp:   newDispatcher(st),
		api:    api,
		events: events,
		logger: log,
	}
}

// Close stops the underlying store.
func (s *ProductService) Close() { s.st.Close() }

// Snapshot returns the current product state.
func (s *ProductService) Snapshot(ctx context.Context) (ProductSnapshot, error) {
	return s.st.Snapshot(ctx)
}

// List merges the filter overlay into the store and fetches the matching
// page, superseding any fetch already in flight.
func (s *ProductService) List(ctx context.Context, overlay domain.ListFilter, page pagination.Params) error {
	if len(overlay) > 0 {
		s.st.SetFilters(overlay)
	}
	snap, err := s.st.Snapshot(ctx)
	if err != nil {
		return err
	}
	filters := domain.ListFilter(snap.Filters)

	return s.disp.fetchList(ctx, store.OpFetchList, func(fctx context.Context) ([]domain.Product, store.Pagination, error) {
		items, meta, err := s.api.FetchList(fctx, filters, page)
		if err != nil {
			return nil, store.Pagination{}, err
		}
		return items, store.Pagination(meta), nil
	})
}

// Get selects the product and fetches its latest state into the collection.
func (s *ProductService) Get(ctx context.Context, id string) error {
	s.st.Select(id)
	return s.disp.fetchOne(ctx, store.OpFetchOne, func(fctx context.Context) (domain.Product, error) {
		return s.api.FetchOne(fctx, id)
	})
}

// Create submits a new product, prefilling an empty slug from the name.
func (s *ProductService) Create(ctx context.Context, input domain.CreateProductInput, images []gateway.Attachment) error {
	if input.Slug == "" {
		input.Slug = slug.Generate(input.Name)
	}

	var created domain.Product
	err := s.disp.mutate(ctx, store.OpCreate, func(mctx context.Context) (store.Mutation[domain.Product], error) {
		product, err := s.api.Create(mctx, input, images)
		if err != nil {
			return nil, err
		}
		created = product
		return store.Append(product), nil
	})
	if err != nil {
		return err
	}
	s.events.Publish(ctx, event.TypeProductCreated, "product", created.ID)
	return nil
}

// Update submits a partial product update and merges the platform's result
// back into the collection.
func (s *ProductService) Update(ctx context.Context, id string, input domain.UpdateProductInput, images []gateway.Attachment) error {
	err := s.disp.mutate(ctx, store.OpUpdate, func(mctx context.Context) (store.Mutation[domain.Product], error) {
		product, err := s.api.Update(mctx, id, input, images)
		if err != nil {
			return nil, err
		}
		return store.Upsert(product), nil
	})
	if err != nil {
		return err
	}
	s.events.Publish(ctx, event.TypeProductUpdated, "product", id)
	return nil
}

// Delete removes the product. On upstream rejection the row stays put and
// the delete error slot carries the reason.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	err := s.disp.mutate(ctx, store.OpDelete, func(mctx context.Context) (store.Mutation[domain.Product], error) {
		if err := s.api.Delete(mctx, id); err != nil {
			return nil, err
		}
		return store.RemoveIDs[domain.Product](id), nil
	})
	if err != nil {
		return err
	}
	s.events.Publish(ctx, event.TypeProductDeleted, "product", id)
	return nil
}

// BulkDelete removes a set of products in one atomic upstream call; the
// local rows drop only after the platform confirms.
func (s *ProductService) BulkDelete(ctx context.Context, ids []string) error {
	err := s.disp.mutate(ctx, store.OpBulkDelete, func(mctx context.Context) (store.Mutation[domain.Product], error) {
		if err := s.api.BulkDelete(mctx, ids); err != nil {
			return nil, err
		}
		return store.RemoveIDs[domain.Product](ids...), nil
	})
	if err != nil {
		return err
	}
	s.events.PublishBulk(ctx, event.TypeProductsBulk, "product", ids)
	return nil
}

// BulkUpdate applies one patch to a set of products. The platform's updated
// entities are merged back; IDs the platform did not return fall back to a
// local application of the same patch so the collection never shows a
// half-applied batch.
func (s *ProductService) BulkUpdate(ctx context.Context, ids []string, patch domain.BulkProductPatch) error {
	err := s.disp.mutate(ctx, store.OpBulkUpdate, func(mctx context.Context) (store.Mutation[domain.Product], error) {
		updated, err := s.api.BulkUpdate(mctx, ids, patch)
		if err != nil {
			return nil, err
		}

		byID := make(map[string]domain.Product, len(updated))
		for _, p := range updated {
			byID[p.ID] = p
		}
		return store.PatchIDs(ids, func(p domain.Product) domain.Product {
			if fresh, ok := byID[p.ID]; ok {
				return fresh
			}
			return patch.Apply(p)
		}), nil
	})
	if err != nil {
		return err
	}
	s.events.PublishBulk(ctx, event.TypeProductsBulk, "product", ids)
	return nil
}

// Counts aggregates status and stock totals over the current collection.
func (s *ProductService) Counts(ctx context.Context) (domain.ProductCounts, error) {
	snap, err := s.st.Snapshot(ctx)
	if err != nil {
		return domain.ProductCounts{}, err
	}
	return domain.CountProducts(snap.Items), nil
}

// Select marks a product as selected without fetching.
func (s *ProductService) Select(id string) { s.st.Select(id) }

// Deselect clears the selection.
func (s *ProductService) Deselect() { s.st.Deselect() }

// ClearError resets one family's error slot.
func (s *ProductService) ClearError(fam store.Family) { s.st.ClearError(fam) }

// ClearErrors resets every family's error slot.
func (s *ProductService) ClearErrors() { s.st.ClearErrors() }

// Reset drops all product state, e.g. on tenant switch.
func (s *ProductService) Reset() { s.st.Reset() }
