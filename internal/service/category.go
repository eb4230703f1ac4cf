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

// CategorySnapshot is the category store snapshot with its derived tree.
type CategorySnapshot = store.Snapshot[domain.Category, []*domain.Category]

// CategoryAPI is the upstream surface the category service depends on.
type CategoryAPI interface {
	FetchList(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, gateway.Page, error)
	FetchOne(ctx context.Context, id string) (domain.Category, error)
	Create(ctx context.Context, input domain.CreateCategoryInput, image *gateway.Attachment) (domain.Category, error)
	Update(ctx context.Context, id string, input domain.UpdateCategoryInput, image *gateway.Attachment) (domain.Category, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, updates []domain.SortOrderUpdate) ([]domain.Category, error)
	Reparent(ctx context.Context, id string, parentID *string) (domain.Category, error)
}

// CategoryService owns the category collection state and drives its
// operations against the platform. The derived tree is rebuilt from the
// flat collection after every fulfilled mutation.
type CategoryService struct {
	st     *store.Store[domain.Category, []*domain.Category]
	disp   *dispatcher[domain.Category, []*domain.Category]
	api    CategoryAPI
	events *event.Publisher
	logger *slog.Logger
}

// NewCategoryService creates the service with a fresh empty store.
func NewCategoryService(api CategoryAPI, events *event.Publisher, log *slog.Logger) *CategoryService {
	st := store.New(store.Config[domain.Category, []*domain.Category]{
		Name:   "categories",
		Derive: domain.BuildCategoryTree,
		Logger: log,
	})
	return &CategoryService{
		st:     st,
		disp:   newDispatcher(st),
		api:    api,
		events: events,
		logger: log,
	}
}

// Close stops the underlying store.
func (s *CategoryService) Close() { s.st.Close() }

// Snapshot returns the current category state.
func (s *CategoryService) Snapshot(ctx context.Context) (CategorySnapshot, error) {
	return s.st.Snapshot(ctx)
}

// List merges the filter overlay into the store and fetches the matching
// page. A list issued while another is in flight supersedes it.
func (s *CategoryService) List(ctx context.Context, overlay domain.ListFilter, page pagination.Params) error {
	if len(overlay) > 0 {
		s.st.SetFilters(overlay)
	}
	snap, err := s.st.Snapshot(ctx)
	if err != nil {
		return err
	}
	filters := domain.ListFilter(snap.Filters)

	return s.disp.fetchList(ctx, store.OpFetchList, func(fctx context.Context) ([]domain.Category, store.Pagination, error) {
		items, meta, err := s.api.FetchList(fctx, filters, page)
		if err != nil {
			return nil, store.Pagination{}, err
		}
		return items, store.Pagination(meta), nil
	})
}

// Get selects the category and fetches its latest state into the
// collection.
func (s *CategoryService) Get(ctx context.Context, id string) error {
	s.st.Select(id)
	return s.disp.fetchOne(ctx, store.OpFetchOne, func(fctx context.Context) (domain.Category, error) {
		return s.api.FetchOne(fctx, id)
	})
}

// Create submits a new category. An empty slug is prefilled from the name
// before the request goes out.
func (s *CategoryService) Create(ctx context.Context, input domain.CreateCategoryInput, image *gateway.Attachment) error {
	if input.Slug == "" {
		input.Slug = slug.Generate(input.Name)
	}

	var created domain.Category
	err := s.disp.mutate(ctx, store.OpCreate, func(mctx context.Context) (store.Mutation[domain.Category], error) {
		category, err := s.api.Create(mctx, input, image)
		if err != nil {
			return nil, err
		}
		created = category
		return store.Append(category), nil
	})
	if err != nil {
		return err
	}
	s.events.Publish(ctx, event.TypeCategoryCreated, "category", created.ID)
	return nil
}

// Update submits a partial category update and merges the platform's
// authoritative result back into the collection.
func (s *CategoryService) Update(ctx context.Context, id string, input domain.UpdateCategoryInput, image *gateway.Attachment) error {
	err := s.disp.mutate(ctx, store.OpUpdate, func(mctx context.Context) (store.Mutation[domain.Category], error) {
		category, err := s.api.Update(mctx, id, input, image)
		if err != nil {
			return nil, err
		}
		return store.Upsert(category), nil
	})
	if err != nil {
		return err
	}
	s.events.Publish(ctx, event.TypeCategoryUpdated, "category", id)
	return nil
}

// Delete removes the category. On upstream rejection the row stays in the
// collection and the delete error slot carries the platform's reason.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	err := s.disp.mutate(ctx, store.OpDelete, func(mctx context.Context) (store.Mutation[domain.Category], error) {
		if err := s.api.Delete(mctx, id); err != nil {
			return nil, err
		}
		return store.RemoveIDs[domain.Category](id), nil
	})
	if err != nil {
		return err
	}
	s.events.Publish(ctx, event.TypeCategoryDeleted, "category", id)
	return nil
}

// Reorder submits new sibling positions and replaces the collection with
// the platform's post-reorder view, which rebuilds the tree.
func (s *CategoryService) Reorder(ctx context.Context, updates []domain.SortOrderUpdate) error {
	err := s.disp.mutate(ctx, store.OpReorder, func(mctx context.Context) (store.Mutation[domain.Category], error) {
		items, err := s.api.Reorder(mctx, updates)
		if err != nil {
			return nil, err
		}
		return store.ReplaceAll(items), nil
	})
	if err != nil {
		return err
	}
	s.events.PublishBulk(ctx, event.TypeCategoryReordered, "category", idsOf(updates))
	return nil
}

// Reparent moves a category under a new parent (nil for root).
func (s *CategoryService) Reparent(ctx context.Context, id string, parentID *string) error {
	err := s.disp.mutate(ctx, store.OpReparent, func(mctx context.Context) (store.Mutation[domain.Category], error) {
		category, err := s.api.Reparent(mctx, id, parentID)
		if err != nil {
			return nil, err
		}
		return store.Upsert(category), nil
	})
	if err != nil {
		return err
	}
	s.events.Publish(ctx, event.TypeCategoryUpdated, "category", id)
	return nil
}

// Tree returns the derived category tree, or the derivation error when the
// parent graph is corrupt.
func (s *CategoryService) Tree(ctx context.Context) ([]*domain.Category, error) {
	snap, err := s.st.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap.DeriveErr != nil {
		return nil, snap.DeriveErr
	}
	if snap.Derived == nil {
		return []*domain.Category{}, nil
	}
	return snap.Derived, nil
}

// Breadcrumb returns the ancestor path for a category from the current
// collection.
func (s *CategoryService) Breadcrumb(ctx context.Context, id string) ([]domain.Category, error) {
	snap, err := s.st.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Breadcrumb(snap.Items, id)
}

// Select marks a category as selected without fetching.
func (s *CategoryService) Select(id string) { s.st.Select(id) }

// Deselect clears the selection.
func (s *CategoryService) Deselect() { s.st.Deselect() }

// ClearError resets one family's error slot.
func (s *CategoryService) ClearError(fam store.Family) { s.st.ClearError(fam) }

// ClearErrors resets every family's error slot.
func (s *CategoryService) ClearErrors() { s.st.ClearErrors() }

// Reset drops all category state, e.g. on tenant switch.
func (s *CategoryService) Reset() { s.st.Reset() }

func idsOf(updates []domain.SortOrderUpdate) []string {
	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}
	return ids
}
