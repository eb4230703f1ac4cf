package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/storeloom/console/internal/gateway"
	"github.com/storeloom/console/internal/store"
	apperrors "github.com/storeloom/console/pkg/errors"
	"github.com/storeloom/console/pkg/httputil"
	"github.com/storeloom/console/pkg/logger"
)

// lifecycleState is the operation lifecycle slice of a snapshot, serialized
// for the dashboard: per-family loading flags plus the surviving error
// messages.
type lifecycleState struct {
	Loading store.Flags       `json:"loading"`
	Errors  map[string]string `json:"errors"`
}

func lifecycleOf(flags store.Flags, errs store.Errors) lifecycleState {
	messages := map[string]string{}
	put := func(fam store.Family, err error) {
		if err != nil {
			messages[fam.String()] = reasonOf(err)
		}
	}
	put(store.FamilyFetch, errs.Fetch)
	put(store.FamilyCreate, errs.Create)
	put(store.FamilyUpdate, errs.Update)
	put(store.FamilyDelete, errs.Delete)
	put(store.FamilyBulk, errs.Bulk)
	return lifecycleState{Loading: flags, Errors: messages}
}

func reasonOf(err error) string {
	var opErr *gateway.OpError
	if errors.As(err, &opErr) {
		return opErr.Reason
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// writeServiceError renders a service-layer failure. Upstream operation
// errors keep their status and display reason; everything else goes through
// the shared error writer.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, log *slog.Logger) {
	var opErr *gateway.OpError
	if errors.As(err, &opErr) {
		httputil.WriteJSON(w, opErr.Status, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:      codeFor(opErr),
				Message:   opErr.Reason,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return
	}
	httputil.WriteError(w, r, err, log)
}

// familyFromName parses the lifecycle family names used in URLs.
func familyFromName(name string) (store.Family, bool) {
	switch name {
	case "fetch":
		return store.FamilyFetch, true
	case "create":
		return store.FamilyCreate, true
	case "update":
		return store.FamilyUpdate, true
	case "delete":
		return store.FamilyDelete, true
	case "bulk":
		return store.FamilyBulk, true
	}
	return 0, false
}

func codeFor(opErr *gateway.OpError) string {
	switch {
	case errors.Is(opErr, apperrors.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(opErr, apperrors.ErrConflict):
		return "CONFLICT"
	case errors.Is(opErr, apperrors.ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(opErr, apperrors.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(opErr, apperrors.ErrForbidden):
		return "FORBIDDEN"
	default:
		return "UPSTREAM_ERROR"
	}
}
