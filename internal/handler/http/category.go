package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/storeloom/console/internal/domain"
	"github.com/storeloom/console/internal/gateway"
	"github.com/storeloom/console/internal/service"
	apperrors "github.com/storeloom/console/pkg/errors"
	"github.com/storeloom/console/pkg/httputil"
	"github.com/storeloom/console/pkg/pagination"
	"github.com/storeloom/console/pkg/validator"
)

// CategoryHandler handles HTTP requests for category endpoints.
type CategoryHandler struct {
	service *service.CategoryService
	logger  *slog.Logger
}

// NewCategoryHandler creates a new category HTTP handler.
func NewCategoryHandler(svc *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{service: svc, logger: logger}
}

// categoryCollectionResponse is the list response: the refreshed collection
// plus the lifecycle slice the dashboard renders spinners and banners from.
type categoryCollectionResponse struct {
	Items      []domain.Category `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	TotalPages int               `json:"total_pages"`
	State      lifecycleState    `json:"state"`
}

// List handles GET /api/v1/catalog/categories. It refreshes the collection
// from the platform with the merged filters and returns the new state.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	overlay := filterOverlay(r, "status", "search", "is_active", "parent_id")

	if err := h.service.List(r.Context(), overlay, page); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: categoryCollectionResponse{
		Items:      snap.Items,
		Total:      snap.Pagination.Total,
		Page:       snap.Pagination.Page,
		PerPage:    snap.Pagination.PerPage,
		TotalPages: snap.Pagination.TotalPages,
		State:      lifecycleOf(snap.Loading, snap.Errors),
	}})
}

// Tree handles GET /api/v1/catalog/categories/tree, serving the derived
// hierarchy without touching the platform.
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Tree(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tree})
}

// Get handles GET /api/v1/catalog/categories/{id}. It selects the category,
// refreshes it from the platform and returns the selected entity.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Get(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if snap.Selected == nil {
		writeServiceError(w, r, apperrors.NotFound("category", id), h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap.Selected})
}

// Breadcrumb handles GET /api/v1/catalog/categories/{id}/breadcrumb.
func (h *CategoryHandler) Breadcrumb(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.Breadcrumb(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: path})
}

// Create handles POST /api/v1/catalog/categories. Multipart requests may
// carry an image file alongside the JSON fields.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateCategoryInput
	image, err := decodeWithAttachment(r, &input, "image")
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Create(r.Context(), input, image); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: map[string]any{
		"items": snap.Items,
		"tree":  snap.Derived,
	}})
}

// Update handles PATCH /api/v1/catalog/categories/{id}.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input domain.UpdateCategoryInput
	image, err := decodeWithAttachment(r, &input, "image")
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Update(r.Context(), id, input, image); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	updated, _ := snap.Find(id)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: updated})
}

// Delete handles DELETE /api/v1/catalog/categories/{id}. A platform
// rejection (children, assigned products) keeps the row and surfaces the
// platform's reason.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reorderRequest is the JSON request body for reordering categories.
type reorderRequest struct {
	Categories []domain.SortOrderUpdate `json:"categories" validate:"required,min=1,dive"`
}

// Reorder handles PUT /api/v1/catalog/categories/reorder and returns the
// rebuilt tree.
func (h *CategoryHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, apperrors.InvalidInput("invalid JSON body"))
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Reorder(r.Context(), req.Categories); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	tree, err := h.service.Tree(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tree})
}

// reparentRequest is the JSON request body for moving a category. A null
// parent_id moves the category to the root.
type reparentRequest struct {
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

// Reparent handles PUT /api/v1/catalog/categories/{id}/parent.
func (h *CategoryHandler) Reparent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req reparentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, apperrors.InvalidInput("invalid JSON body"))
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Reparent(r.Context(), id, req.ParentID); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	tree, err := h.service.Tree(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tree})
}

// State handles GET /api/v1/catalog/categories/state, exposing the
// lifecycle slice on its own for lightweight polling.
func (h *CategoryHandler) State(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: lifecycleOf(snap.Loading, snap.Errors)})
}

// ClearError handles DELETE /api/v1/catalog/categories/errors/{family},
// dismissing one family's error banner.
func (h *CategoryHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	fam, ok := familyFromName(chi.URLParam(r, "family"))
	if !ok {
		httputil.WriteValidationError(w, apperrors.InvalidInput("unknown error family"))
		return
	}
	h.service.ClearError(fam)
	w.WriteHeader(http.StatusNoContent)
}

// ClearErrors handles DELETE /api/v1/catalog/categories/errors, dismissing
// every family's error banner at once.
func (h *CategoryHandler) ClearErrors(w http.ResponseWriter, r *http.Request) {
	h.service.ClearErrors()
	w.WriteHeader(http.StatusNoContent)
}

// filterOverlay extracts the given filter keys from the query string. Keys
// absent from the query are omitted entirely so they do not disturb the
// stored filter set; the "all" sentinel passes through and is stripped at
// the gateway.
func filterOverlay(r *http.Request, keys ...string) domain.ListFilter {
	overlay := domain.ListFilter{}
	q := r.URL.Query()
	for _, key := range keys {
		if !q.Has(key) {
			continue
		}
		overlay[key] = q.Get(key)
	}
	return overlay
}

// decodeWithAttachment decodes the request into target, handling both plain
// JSON bodies and multipart forms with a "payload" JSON part plus an
// optional file.
func decodeWithAttachment(r *http.Request, target any, fileField string) (*gateway.Attachment, error) {
	contentType := r.Header.Get("Content-Type")
	if !isMultipart(contentType) {
		if err := json.NewDecoder(r.Body).Decode(target); err != nil {
			return nil, apperrors.InvalidInput("invalid JSON body")
		}
		return nil, nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, apperrors.InvalidInput("invalid multipart body")
	}
	payload := r.FormValue("payload")
	if payload == "" {
		return nil, apperrors.InvalidInput("multipart request requires a payload part")
	}
	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return nil, apperrors.InvalidInput("invalid payload JSON")
	}

	file, header, err := r.FormFile(fileField)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.InvalidInput("invalid file upload")
	}
	return &gateway.Attachment{
		Field:       fileField,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	}, nil
}

func isMultipart(contentType string) bool {
	return strings.HasPrefix(contentType, "multipart/form-data")
}
