package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storeloom/console/internal/domain"
	"github.com/storeloom/console/internal/gateway"
	"github.com/storeloom/console/internal/service"
	apperrors "github.com/storeloom/console/pkg/errors"
	"github.com/storeloom/console/pkg/httputil"
	"github.com/storeloom/console/pkg/pagination"
	"github.com/storeloom/console/pkg/validator"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

type productCollectionResponse struct {
	Items      []domain.Product `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
	State      lifecycleState   `json:"state"`
}

// List handles GET /api/v1/catalog/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	overlay := filterOverlay(r, "status", "search", "category_id", "is_active", "is_featured", "in_stock")

	if status := overlay["status"]; status != "" && status != domain.FilterAll && !domain.IsValidStatus(status) {
		httputil.WriteValidationError(w, apperrors.InvalidInput("status must be one of: draft, published, archived"))
		return
	}

	if err := h.service.List(r.Context(), overlay, page); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: productCollectionResponse{
		Items:      snap.Items,
		Total:      snap.Pagination.Total,
		Page:       snap.Pagination.Page,
		PerPage:    snap.Pagination.PerPage,
		TotalPages: snap.Pagination.TotalPages,
		State:      lifecycleOf(snap.Loading, snap.Errors),
	}})
}

// View handles GET /api/v1/catalog/products/views/{view}, serving derived
// selections of the in-memory collection without touching the platform.
// Supported views: active, featured, in_stock, out_of_stock, low_stock.
// Optional query parameters narrow and order the result: search, status,
// category_id, sort_by, order=desc.
func (h *ProductHandler) View(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	items := snap.Items
	switch chi.URLParam(r, "view") {
	case "all":
	case "active":
		items = domain.ActiveProducts(items)
	case "featured":
		items = domain.FeaturedProducts(items)
	case "in_stock":
		items = domain.InStockProducts(items)
	case "out_of_stock":
		items = domain.OutOfStockProducts(items)
	case "low_stock":
		items = domain.LowStockProducts(items)
	default:
		httputil.WriteValidationError(w, apperrors.InvalidInput("unknown product view"))
		return
	}

	q := r.URL.Query()
	if status := q.Get("status"); status != "" && status != domain.FilterAll {
		items = domain.ProductsByStatus(items, status)
	}
	if categoryID := q.Get("category_id"); categoryID != "" {
		items = domain.ProductsInCategory(items, categoryID)
	}
	if search := q.Get("search"); search != "" {
		items = domain.SearchProducts(items, search)
	}
	if sortBy := q.Get("sort_by"); sortBy != "" {
		items = domain.SortProducts(items, domain.SortKey(sortBy), q.Get("order") == "desc")
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
}

// Counts handles GET /api/v1/catalog/products/counts.
func (h *ProductHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Counts(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: counts})
}

// Get handles GET /api/v1/catalog/products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
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
		writeServiceError(w, r, apperrors.NotFound("product", id), h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap.Selected})
}

// Create handles POST /api/v1/catalog/products. Multipart requests may
// carry image files alongside the JSON payload part.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateProductInput
	images, err := decodeWithAttachments(r, &input, "images")
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Create(r.Context(), input, images); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: snap.Items})
}

// Update handles PATCH /api/v1/catalog/products/{id}.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input domain.UpdateProductInput
	images, err := decodeWithAttachments(r, &input, "images")
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Update(r.Context(), id, input, images); err != nil {
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

// Delete handles DELETE /api/v1/catalog/products/{id}.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bulkDeleteRequest is the JSON request body for bulk deletion.
type bulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// BulkDelete handles POST /api/v1/catalog/products/bulk-delete. The batch
// is atomic upstream; local rows drop only after the platform confirms.
func (h *ProductHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, apperrors.InvalidInput("invalid JSON body"))
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.BulkDelete(r.Context(), req.IDs); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bulkUpdateRequest is the JSON request body for bulk updates.
type bulkUpdateRequest struct {
	IDs   []string                `json:"ids" validate:"required,min=1,dive,required"`
	Patch domain.BulkProductPatch `json:"patch" validate:"required"`
}

// BulkUpdate handles POST /api/v1/catalog/products/bulk-update.
func (h *ProductHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, apperrors.InvalidInput("invalid JSON body"))
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.BulkUpdate(r.Context(), req.IDs, req.Patch); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap.Items})
}

// State handles GET /api/v1/catalog/products/state.
func (h *ProductHandler) State(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: lifecycleOf(snap.Loading, snap.Errors)})
}

// ClearError handles DELETE /api/v1/catalog/products/errors/{family}.
func (h *ProductHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	fam, ok := familyFromName(chi.URLParam(r, "family"))
	if !ok {
		httputil.WriteValidationError(w, apperrors.InvalidInput("unknown error family"))
		return
	}
	h.service.ClearError(fam)
	w.WriteHeader(http.StatusNoContent)
}

// ClearErrors handles DELETE /api/v1/catalog/products/errors, dismissing
// every family's error banner at once.
func (h *ProductHandler) ClearErrors(w http.ResponseWriter, r *http.Request) {
	h.service.ClearErrors()
	w.WriteHeader(http.StatusNoContent)
}

// decodeWithAttachments is the multi-file variant of decodeWithAttachment.
func decodeWithAttachments(r *http.Request, target any, fileField string) ([]gateway.Attachment, error) {
	contentType := r.Header.Get("Content-Type")
	if !isMultipart(contentType) {
		if err := json.NewDecoder(r.Body).Decode(target); err != nil {
			return nil, apperrors.InvalidInput("invalid JSON body")
		}
		return nil, nil
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		return nil, apperrors.InvalidInput("invalid multipart body")
	}
	payload := r.FormValue("payload")
	if payload == "" {
		return nil, apperrors.InvalidInput("multipart request requires a payload part")
	}
	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return nil, apperrors.InvalidInput("invalid payload JSON")
	}

	var attachments []gateway.Attachment
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File[fileField] {
			file, err := header.Open()
			if err != nil {
				return nil, apperrors.InvalidInput("invalid file upload")
			}
			attachments = append(attachments, gateway.Attachment{
				Field:       fileField,
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Reader:      file,
			})
		}
	}
	return attachments, nil
}
