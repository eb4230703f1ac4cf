package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeloom/console/internal/domain"
	"github.com/storeloom/console/internal/session"
	apperrors "github.com/storeloom/console/pkg/errors"
	"github.com/storeloom/console/pkg/logger"
	"github.com/storeloom/console/pkg/pagination"
)

func newTestGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(
		Config{BaseURL: srv.URL, Timeout: 5 * time.Second, ServiceToken: "svc-token"},
		session.Static{"m-1": "s-1"},
		logger.New("test", "error"),
	)
}

func authedCtx() context.Context {
	return session.WithMerchantID(context.Background(), "m-1")
}

func writeEnvelope(w http.ResponseWriter, status int, data any, page *Page) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":    status < 400,
		"data":       data,
		"pagination": page,
	})
}

func TestStoreScopePrecondition(t *testing.T) {
	called := false
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	t.Run("merchant without a store fails before any request", func(t *testing.T) {
		ctx := session.WithMerchantID(context.Background(), "m-unbound")
		_, err := g.Categories().FetchOne(ctx, "c-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNoStore)
		assert.False(t, called)
	})

	t.Run("unauthenticated context is rejected", func(t *testing.T) {
		_, err := g.Categories().FetchOne(context.Background(), "c-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.False(t, called)
	})

	t.Run("pre-resolved store id skips the lookup", func(t *testing.T) {
		ctx := session.WithStoreID(context.Background(), "s-direct")
		_, err := g.Categories().FetchOne(ctx, "c-1")
		// The handler above returns an empty 200 body, which decodes to a
		// zero category; no error means the scope resolved.
		require.NoError(t, err)
		assert.True(t, called)
	})
}

func TestFetchListQueryEncoding(t *testing.T) {
	var gotQuery map[string][]string
	var gotPath string
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		writeEnvelope(w, http.StatusOK, []domain.Product{}, &Page{Page: 1, PerPage: 20})
	}))

	filters := domain.ListFilter{
		"status":    "all",
		"search":    "",
		"is_active": "1",
		"category":  "c-9",
	}
	_, _, err := g.Products().FetchList(authedCtx(), filters, pagination.Params{Page: 2, PerPage: 50})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/stores/s-1/products", gotPath)
	assert.NotContains(t, gotQuery, "status", "the all sentinel must be stripped")
	assert.NotContains(t, gotQuery, "search", "empty filters must be stripped")
	assert.Equal(t, []string{"true"}, gotQuery["is_active"], "boolean filters are coerced")
	assert.Equal(t, []string{"c-9"}, gotQuery["category"])
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"50"}, gotQuery["per_page"])
}

func TestFetchListDecodesEnvelope(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, []domain.Category{
			{ID: "c-1", Name: "Drinks"},
			{ID: "c-2", Name: "Snacks"},
		}, &Page{Page: 1, PerPage: 20, Total: 2, TotalPages: 1})
	}))

	items, page, err := g.Categories().FetchList(authedCtx(), nil, pagination.DefaultParams())
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "Drinks", items[0].Name)
	assert.Equal(t, 2, page.Total)
}

func TestOpErrorReasonPreference(t *testing.T) {
	t.Run("server message wins", func(t *testing.T) {
		g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"success":false,"error":{"code":"HAS_CHILDREN","message":"Category has subcategories and cannot be deleted"}}`)
		}))

		err := g.Categories().Delete(authedCtx(), "c-1")
		require.Error(t, err)

		var opErr *OpError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "Category has subcategories and cannot be deleted", opErr.Reason)
		assert.Equal(t, http.StatusConflict, opErr.Status)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("operation fallback when the server is silent", func(t *testing.T) {
		g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false}`)
		}))

		err := g.Categories().Delete(authedCtx(), "c-1")
		require.Error(t, err)

		var opErr *OpError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "Failed to delete category", opErr.Reason)
	})

	t.Run("envelope failure on a 200 still errors", func(t *testing.T) {
		g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"success":false,"error":{"message":"quota exceeded"}}`)
		}))

		_, err := g.Products().FetchOne(authedCtx(), "p-1")
		require.Error(t, err)

		var opErr *OpError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "quota exceeded", opErr.Reason)
	})

	t.Run("404 maps to not found", func(t *testing.T) {
		g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success":false,"error":{"message":"product not found"}}`)
		}))

		_, err := g.Products().FetchOne(authedCtx(), "p-404")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestCanceledContextPassesThrough(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(authedCtx())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := g.Categories().FetchList(ctx, nil, pagination.DefaultParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var opErr *OpError
	assert.False(t, errors.As(err, &opErr), "cancellation must not be dressed up as an upstream failure")
}

func TestMutationRequests(t *testing.T) {
	t.Run("create sends json and decodes the entity", func(t *testing.T) {
		var gotBody map[string]any
		var gotAuth string
		g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			writeEnvelope(w, http.StatusCreated, domain.Category{ID: "c-new", Name: "Drinks", Slug: "drinks"}, nil)
		}))

		created, err := g.Categories().Create(authedCtx(), domain.CreateCategoryInput{Name: "Drinks", Slug: "drinks"}, nil)
		require.NoError(t, err)

		assert.Equal(t, "c-new", created.ID)
		assert.Equal(t, "Drinks", gotBody["name"])
		assert.Equal(t, "Bearer svc-token", gotAuth)
	})

	t.Run("reorder puts the full update set", func(t *testing.T) {
		var gotBody map[string]any
		g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.True(t, strings.HasSuffix(r.URL.Path, "/categories/reorder"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			writeEnvelope(w, http.StatusOK, []domain.Category{{ID: "a", SortOrder: 1}}, nil)
		}))

		items, err := g.Categories().Reorder(authedCtx(), []domain.SortOrderUpdate{{ID: "a", SortOrder: 1}})
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Len(t, gotBody["categories"], 1)
	})

	t.Run("reparent to root sends explicit null", func(t *testing.T) {
		var rawBody []byte
		g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawBody, _ = io.ReadAll(r.Body)
			writeEnvelope(w, http.StatusOK, domain.Category{ID: "c-1"}, nil)
		}))

		_, err := g.Categories().Reparent(authedCtx(), "c-1", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"parent_id":null}`, string(rawBody))
	})

	t.Run("bulk delete posts the id set", func(t *testing.T) {
		var gotBody map[string][]string
		g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/products/bulk-delete"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			writeEnvelope(w, http.StatusOK, nil, nil)
		}))

		err := g.Products().BulkDelete(authedCtx(), []string{"p-1", "p-2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"p-1", "p-2"}, gotBody["ids"])
	})
}

func TestMultipartCreate(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Summer Mug", r.FormValue("name"))
		// Non-scalar fields arrive JSON-stringified.
		assert.Equal(t, "1200", r.FormValue("price"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "mug.png", header.Filename)
		assert.Equal(t, "fake-png-bytes", string(content))

		writeEnvelope(w, http.StatusCreated, domain.Product{ID: "p-new"}, nil)
	}))

	created, err := g.Products().Create(authedCtx(),
		domain.CreateProductInput{Name: "Summer Mug", Price: 1200, Currency: "USD"},
		[]Attachment{{
			Field:       "image",
			Filename:    "mug.png",
			ContentType: "image/png",
			Reader:      strings.NewReader("fake-png-bytes"),
		}},
	)
	require.NoError(t, err)
	assert.Equal(t, "p-new", created.ID)
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"true", "true", true},
		{"TRUE", "true", true},
		{"1", "true", true},
		{"yes", "true", true},
		{"false", "false", true},
		{"0", "false", true},
		{"off", "false", true},
		{"maybe", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := coerceBool(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
