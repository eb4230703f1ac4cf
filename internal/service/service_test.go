package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeloom/console/internal/domain"
	"github.com/storeloom/console/internal/event"
	"github.com/storeloom/console/internal/gateway"
	"github.com/storeloom/console/pkg/logger"
	"github.com/storeloom/console/pkg/pagination"
)

type fakeCategoryAPI struct {
	fetchList func(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, gateway.Page, error)
	fetchOne  func(ctx context.Context, id string) (domain.Category, error)
	create    func(ctx context.Context, input domain.CreateCategoryInput, image *gateway.Attachment) (domain.Category, error)
	update    func(ctx context.Context, id string, input domain.UpdateCategoryInput, image *gateway.Attachment) (domain.Category, error)
	delete    func(ctx context.Context, id string) error
	reorder   func(ctx context.Context, updates []domain.SortOrderUpdate) ([]domain.Category, error)
	reparent  func(ctx context.Context, id string, parentID *string) (domain.Category, error)
}

func (f *fakeCategoryAPI) FetchList(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, gateway.Page, error) {
	return f.fetchList(ctx, filters, page)
}

func (f *fakeCategoryAPI) FetchOne(ctx context.Context, id string) (domain.Category, error) {
	return f.fetchOne(ctx, id)
}

func (f *fakeCategoryAPI) Create(ctx context.Context, input domain.CreateCategoryInput, image *gateway.Attachment) (domain.Category, error) {
	return f.create(ctx, input, image)
}

func (f *fakeCategoryAPI) Update(ctx context.Context, id string, input domain.UpdateCategoryInput, image *gateway.Attachment) (domain.Category, error) {
	return f.update(ctx, id, input, image)
}

func (f *fakeCategoryAPI) Delete(ctx context.Context, id string) error {
	return f.delete(ctx, id)
}

func (f *fakeCategoryAPI) Reorder(ctx context.Context, updates []domain.SortOrderUpdate) ([]domain.Category, error) {
	return f.reorder(ctx, updates)
}

func (f *fakeCategoryAPI) Reparent(ctx context.Context, id string, parentID *string) (domain.Category, error) {
	return f.reparent(ctx, id, parentID)
}

func newCategoryService(t *testing.T, api CategoryAPI) *CategoryService {
	t.Helper()
	log := logger.New("test", "error")
	s := NewCategoryService(api, event.NewPublisher(nil, "catalog.changes", log), log)
	t.Cleanup(s.Close)
	return s
}

func categorySnap(t *testing.T, s *CategoryService) CategorySnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	return snap
}

func TestCategoryListPopulatesStoreAndTree(t *testing.T) {
	api := &fakeCategoryAPI{
		fetchList: func(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, gateway.Page, error) {
			return []domain.Category{
				{ID: "a", SortOrder: 2},
				{ID: "b", SortOrder: 1},
				{ID: "c", ParentID: strPtr("a"), SortOrder: 0},
			}, gateway.Page{Page: 1, PerPage: 20, Total: 3, TotalPages: 1}, nil
		},
	}
	s := newCategoryService(t, api)

	require.NoError(t, s.List(context.Background(), nil, pagination.DefaultParams()))

	snap := categorySnap(t, s)
	assert.Len(t, snap.Items, 3)
	assert.Equal(t, 3, snap.Pagination.Total)
	assert.False(t, snap.Loading.Fetch)

	tree, err := s.Tree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "b", tree[0].ID)
	assert.Equal(t, "a", tree[1].ID)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "c", tree[1].Children[0].ID)
}

func TestCategoryListMergesFilters(t *testing.T) {
	var gotFilters domain.ListFilter
	api := &fakeCategoryAPI{
		fetchList: func(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, gateway.Page, error) {
			gotFilters = filters
			return nil, gateway.Page{}, nil
		},
	}
	s := newCategoryService(t, api)

	require.NoError(t, s.List(context.Background(), domain.ListFilter{"search": "mug", "status": "draft"}, pagination.DefaultParams()))
	require.NoError(t, s.List(context.Background(), domain.ListFilter{"status": "published"}, pagination.DefaultParams()))

	assert.Equal(t, "mug", gotFilters["search"], "earlier filters survive a partial overlay")
	assert.Equal(t, "published", gotFilters["status"])
}

func TestNewerFetchSupersedesOlder(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})

	call := 0
	api := &fakeCategoryAPI{
		fetchList: func(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, gateway.Page, error) {
			call++
			if call == 1 {
				close(firstStarted)
				select {
				case <-ctx.Done():
					return nil, gateway.Page{}, ctx.Err()
				case <-release:
					return []domain.Category{{ID: "stale"}}, gateway.Page{}, nil
				}
			}
			return []domain.Category{{ID: "fresh"}}, gateway.Page{Total: 1}, nil
		},
	}
	s := newCategoryService(t, api)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.List(context.Background(), nil, pagination.DefaultParams())
	}()
	<-firstStarted

	require.NoError(t, s.List(context.Background(), nil, pagination.DefaultParams()))
	close(release)

	err := <-errCh
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	snap := categorySnap(t, s)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "fresh", snap.Items[0].ID, "the superseded fetch must not overwrite the winner")
	assert.False(t, snap.Loading.Fetch, "the loser must not clear or set the winner's flag")
	assert.NoError(t, snap.Errors.Fetch, "supersession is not a failure")
}

func TestSupersededFetchFailureLeavesWinnerPending(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	secondStarted := make(chan struct{})
	holdSecond := make(chan struct{})

	call := 0
	api := &fakeCategoryAPI{
		fetchList: func(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, gateway.Page, error) {
			call++
			if call == 1 {
				close(firstStarted)
				<-release
				// Transport failure that landed just before the cancel.
				return nil, gateway.Page{}, errors.New("connection reset")
			}
			close(secondStarted)
			<-holdSecond
			return []domain.Category{{ID: "fresh"}}, gateway.Page{Total: 1}, nil
		},
	}
	s := newCategoryService(t, api)

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- s.List(context.Background(), nil, pagination.DefaultParams())
	}()
	<-firstStarted

	secondErr := make(chan error, 1)
	go func() {
		secondErr <- s.List(context.Background(), nil, pagination.DefaultParams())
	}()
	<-secondStarted

	// Let the loser fail while the winner is still in flight.
	close(release)
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	snap := categorySnap(t, s)
	assert.True(t, snap.Loading.Fetch, "the loser's failure must not clear the winner's flag")
	assert.NoError(t, snap.Errors.Fetch, "the loser's failure must not plant an error")

	close(holdSecond)
	require.NoError(t, <-secondErr)

	snap = categorySnap(t, s)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "fresh", snap.Items[0].ID)
	assert.False(t, snap.Loading.Fetch)
}

func TestCategoryCreatePrefillsSlugAndAppends(t *testing.T) {
	var gotInput domain.CreateCategoryInput
	api := &fakeCategoryAPI{
		create: func(ctx context.Context, input domain.CreateCategoryInput, image *gateway.Attachment) (domain.Category, error) {
			gotInput = input
			return domain.Category{ID: "c-new", Name: input.Name, Slug: input.Slug}, nil
		},
	}
	s := newCategoryService(t, api)

	require.NoError(t, s.Create(context.Background(), domain.CreateCategoryInput{Name: "Summer Drinks"}, nil))

	assert.Equal(t, "summer-drinks", gotInput.Slug)
	snap := categorySnap(t, s)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "c-new", snap.Items[0].ID)
}

func TestCategoryDeleteFailureKeepsRow(t *testing.T) {
	rejection := &gateway.OpError{Op: "category.delete", Reason: "Category has subcategories and cannot be deleted", Status: 409}
	api := &fakeCategoryAPI{
		fetchList: func(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, gateway.Page, error) {
			return []domain.Category{{ID: "c-1"}}, gateway.Page{Total: 1}, nil
		},
		delete: func(ctx context.Context, id string) error {
			return rejection
		},
	}
	s := newCategoryService(t, api)
	require.NoError(t, s.List(context.Background(), nil, pagination.DefaultParams()))

	err := s.Delete(context.Background(), "c-1")
	require.Error(t, err)

	snap := categorySnap(t, s)
	require.Len(t, snap.Items, 1, "a rejected delete keeps the row")
	assert.False(t, snap.Loading.Delete)

	var opErr *gateway.OpError
	require.ErrorAs(t, snap.Errors.Delete, &opErr)
	assert.Equal(t, "Category has subcategories and cannot be deleted", opErr.Reason)
}

func TestCategoryReorderRebuildsTree(t *testing.T) {
	api := &fakeCategoryAPI{
		fetchList: func(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Category, gateway.Page, error) {
			return []domain.Category{{ID: "a", SortOrder: 0}, {ID: "b", SortOrder: 1}}, gateway.Page{}, nil
		},
		reorder: func(ctx context.Context, updates []domain.SortOrderUpdate) ([]domain.Category, error) {
			return []domain.Category{{ID: "a", SortOrder: 1}, {ID: "b", SortOrder: 0}}, nil
		},
	}
	s := newCategoryService(t, api)
	require.NoError(t, s.List(context.Background(), nil, pagination.DefaultParams()))

	require.NoError(t, s.Reorder(context.Background(), []domain.SortOrderUpdate{
		{ID: "a", SortOrder: 1},
		{ID: "b", SortOrder: 0},
	}))

	tree, err := s.Tree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "b", tree[0].ID)
	assert.Equal(t, "a", tree[1].ID)
}

func TestMutationsSerializeWithinFamily(t *testing.T) {
	inFlight := 0
	maxInFlight := 0
	api := &fakeCategoryAPI{
		create: func(ctx context.Context, input domain.CreateCategoryInput, image *gateway.Attachment) (domain.Category, error) {
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			time.Sleep(5 * time.Millisecond)
			inFlight--
			return domain.Category{ID: input.Name}, nil
		},
	}
	s := newCategoryService(t, api)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Create(context.Background(), domain.CreateCategoryInput{Name: "one"}, nil)
	}()
	_ = s.Create(context.Background(), domain.CreateCategoryInput{Name: "two"}, nil)
	<-done

	assert.Equal(t, 1, maxInFlight, "creates must hit the platform one at a time")
}

func strPtr(s string) *string { return &s }

type fakeProductAPI struct {
	fetchList  func(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Product, gateway.Page, error)
	fetchOne   func(ctx context.Context, id string) (domain.Product, error)
	create     func(ctx context.Context, input domain.CreateProductInput, images []gateway.Attachment) (domain.Product, error)
	update     func(ctx context.Context, id string, input domain.UpdateProductInput, images []gateway.Attachment) (domain.Product, error)
	delete     func(ctx context.Context, id string) error
	bulkDelete func(ctx context.Context, ids []string) error
	bulkUpdate func(ctx context.Context, ids []string, patch domain.BulkProductPatch) ([]domain.Product, error)
}

func (f *fakeProductAPI) FetchList(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Product, gateway.Page, error) {
	return f.fetchList(ctx, filters, page)
}

func (f *fakeProductAPI) FetchOne(ctx context.Context, id string) (domain.Product, error) {
	return f.fetchOne(ctx, id)
}

func (f *fakeProductAPI) Create(ctx context.Context, input domain.CreateProductInput, images []gateway.Attachment) (domain.Product, error) {
	return f.create(ctx, input, images)
}

func (f *fakeProductAPI) Update(ctx context.Context, id string, input domain.UpdateProductInput, images []gateway.Attachment) (domain.Product, error) {
	return f.update(ctx, id, input, images)
}

func (f *fakeProductAPI) Delete(ctx context.Context, id string) error {
	return f.delete(ctx, id)
}

func (f *fakeProductAPI) BulkDelete(ctx context.Context, ids []string) error {
	return f.bulkDelete(ctx, ids)
}

func (f *fakeProductAPI) BulkUpdate(ctx context.Context, ids []string, patch domain.BulkProductPatch) ([]domain.Product, error) {
	return f.bulkUpdate(ctx, ids, patch)
}

func newProductService(t *testing.T, api ProductAPI) *ProductService {
	t.Helper()
	log := logger.New("test", "error")
	s := NewProductService(api, event.NewPublisher(nil, "catalog.changes", log), log)
	t.Cleanup(s.Close)
	return s
}

func productSnap(t *testing.T, s *ProductService) ProductSnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	return snap
}

func seedProducts(t *testing.T, s *ProductService, items []domain.Product) {
	t.Helper()
	api := s.api.(*fakeProductAPI)
	prev := api.fetchList
	api.fetchList = func(ctx context.Context, filters domain.ListFilter, page pagination.Params) ([]domain.Product, gateway.Page, error) {
		return items, gateway.Page{Total: len(items)}, nil
	}
	require.NoError(t, s.List(context.Background(), nil, pagination.DefaultParams()))
	api.fetchList = prev
}

func TestProductBulkDelete(t *testing.T) {
	t.Run("fulfilled batch drops every row", func(t *testing.T) {
		api := &fakeProductAPI{
			bulkDelete: func(ctx context.Context, ids []string) error { return nil },
		}
		s := newProductService(t, api)
		seedProducts(t, s, []domain.Product{{ID: "p-1"}, {ID: "p-2"}, {ID: "p-3"}})

		require.NoError(t, s.BulkDelete(context.Background(), []string{"p-1", "p-3"}))

		snap := productSnap(t, s)
		require.Len(t, snap.Items, 1)
		assert.Equal(t, "p-2", snap.Items[0].ID)
	})

	t.Run("rejected batch drops nothing", func(t *testing.T) {
		api := &fakeProductAPI{
			bulkDelete: func(ctx context.Context, ids []string) error {
				return errors.New("one product has open orders")
			},
		}
		s := newProductService(t, api)
		seedProducts(t, s, []domain.Product{{ID: "p-1"}, {ID: "p-2"}})

		err := s.BulkDelete(context.Background(), []string{"p-1", "p-2"})
		require.Error(t, err)

		snap := productSnap(t, s)
		assert.Len(t, snap.Items, 2)
		assert.Error(t, snap.Errors.Bulk)
		assert.False(t, snap.Loading.Bulk)
	})
}

func TestProductBulkUpdate(t *testing.T) {
	published := domain.ProductStatusPublished
	api := &fakeProductAPI{
		bulkUpdate: func(ctx context.Context, ids []string, patch domain.BulkProductPatch) ([]domain.Product, error) {
			// The platform echoes only the first entity; the second must be
			// patched locally.
			return []domain.Product{{ID: "p-1", Status: domain.ProductStatusPublished, Name: "renamed"}}, nil
		},
	}
	s := newProductService(t, api)
	seedProducts(t, s, []domain.Product{
		{ID: "p-1", Status: domain.ProductStatusDraft},
		{ID: "p-2", Status: domain.ProductStatusDraft},
		{ID: "p-3", Status: domain.ProductStatusDraft},
	})

	require.NoError(t, s.BulkUpdate(context.Background(), []string{"p-1", "p-2"}, domain.BulkProductPatch{Status: &published}))

	snap := productSnap(t, s)
	byID := map[string]domain.Product{}
	for _, p := range snap.Items {
		byID[p.ID] = p
	}
	assert.Equal(t, "renamed", byID["p-1"].Name, "platform entity wins when returned")
	assert.Equal(t, domain.ProductStatusPublished, byID["p-2"].Status, "missing entity gets the patch locally")
	assert.Equal(t, domain.ProductStatusDraft, byID["p-3"].Status, "untargeted rows stay untouched")
}

func TestProductGetSelectsAndUpserts(t *testing.T) {
	api := &fakeProductAPI{
		fetchOne: func(ctx context.Context, id string) (domain.Product, error) {
			return domain.Product{ID: id, Name: "Fetched"}, nil
		},
	}
	s := newProductService(t, api)

	require.NoError(t, s.Get(context.Background(), "p-9"))

	snap := productSnap(t, s)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "Fetched", snap.Selected.Name)
}

func TestProductCounts(t *testing.T) {
	api := &fakeProductAPI{}
	s := newProductService(t, api)
	seedProducts(t, s, []domain.Product{
		{ID: "p-1", Status: domain.ProductStatusPublished, IsActive: true, Quantity: 5, LowStockThreshold: 1},
		{ID: "p-2", Status: domain.ProductStatusDraft, Quantity: 0},
	})

	counts, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 1, counts.Published)
	assert.Equal(t, 1, counts.OutOfStock)
}

func TestResetClearsEverything(t *testing.T) {
	api := &fakeProductAPI{}
	s := newProductService(t, api)
	seedProducts(t, s, []domain.Product{{ID: "p-1"}})
	s.Select("p-1")

	s.Reset()

	snap := productSnap(t, s)
	assert.Empty(t, snap.Items)
	assert.Nil(t, snap.Selected)
}
