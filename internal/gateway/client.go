package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/storeloom/console/internal/session"
	apperrors "github.com/storeloom/console/pkg/errors"
	"github.com/storeloom/console/pkg/httpclient"
	"github.com/storeloom/console/pkg/logger"
)

var (
	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Requests issued to the commerce platform API by operation and status",
		},
		[]string{"op", "status"},
	)
	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Latency of commerce platform API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(upstreamRequests, upstreamDuration)
}

// Config holds gateway configuration.
type Config struct {
	// BaseURL of the commerce platform API, without trailing slash.
	BaseURL string
	// Timeout per upstream call. Mutations are never retried at this layer,
	// so the timeout bounds exactly one attempt.
	Timeout time.Duration
	// ServiceToken authenticates this service to the platform.
	ServiceToken string
}

// Gateway issues operations against the commerce platform API on behalf of
// an authenticated merchant. Every call resolves the merchant's tenant store
// first; merchants without a store fail the precondition before any request
// leaves the process.
type Gateway struct {
	cfg      Config
	http     *httpclient.CircuitBreakerClient
	resolver session.Resolver
	logger   *slog.Logger
}

// New creates a gateway. The underlying client never retries: a failed
// mutation is surfaced to the caller, who owns the retry affordance.
func New(cfg Config, resolver session.Resolver, log *slog.Logger) *Gateway {
	client := httpclient.New(httpclient.NoRetryConfig(cfg.Timeout))
	breaker := httpclient.NewCircuitBreakerClient(
		client,
		httpclient.DefaultCircuitBreakerConfig("commerce-platform"),
		log,
	)
	return &Gateway{cfg: cfg, http: breaker, resolver: resolver, logger: log}
}

// Categories returns the category operation set.
func (g *Gateway) Categories() *Categories { return &Categories{g: g} }

// Products returns the product operation set.
func (g *Gateway) Products() *Products { return &Products{g: g} }

// Page is the upstream's pagination metadata for a collection response.
type Page struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// envelope is the platform's uniform response shape.
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination *Page           `json:"pagination,omitempty"`
	Error      *upstreamError  `json:"error,omitempty"`
}

type upstreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OpError describes a failed upstream operation with a reason fit for
// display. Reason preference: the platform's own message, then the
// operation's fallback, then a generic one.
type OpError struct {
	Op     string
	Reason string
	Status int
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *OpError) Unwrap() error { return e.Err }

func sentinelFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.ErrInvalidInput
	default:
		return apperrors.ErrUpstream
	}
}

func opError(op string, status int, serverMsg, fallback string) *OpError {
	reason := serverMsg
	if reason == "" {
		reason = fallback
	}
	if reason == "" {
		reason = "The operation could not be completed"
	}
	return &OpError{Op: op, Reason: reason, Status: status, Err: sentinelFor(status)}
}

// storeScope resolves the tenant store for the merchant on the context.
// A store ID already resolved by middleware short-circuits the lookup.
func (g *Gateway) storeScope(ctx context.Context) (string, error) {
	if storeID, ok := session.StoreID(ctx); ok {
		return storeID, nil
	}
	merchantID, ok := session.MerchantID(ctx)
	if !ok {
		return "", apperrors.Unauthorized("no authenticated merchant on request")
	}
	return g.resolver.ResolveStore(ctx, merchantID)
}

// call performs one upstream request and decodes the envelope into out.
// A canceled context is passed through untouched so callers can tell a
// superseded request apart from an upstream failure.
func (g *Gateway) call(ctx context.Context, op, method, path string, query url.Values, contentType string, body io.Reader, out any) (*Page, error) {
	storeID, err := g.storeScope(ctx)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/api/v1/stores/%s%s", g.cfg.BaseURL, url.PathEscape(storeID), path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, apperrors.Wrap(err, "build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if g.cfg.ServiceToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.ServiceToken)
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	start := time.Now()
	resp, err := g.http.Do(ctx, req)
	upstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			upstreamRequests.WithLabelValues(op, "canceled").Inc()
			return nil, err
		}
		upstreamRequests.WithLabelValues(op, "error").Inc()
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return nil, opError(op, http.StatusServiceUnavailable, "", "The platform is temporarily unavailable")
		}
		g.logger.Error("upstream request failed",
			slog.String("op", op),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, opError(op, http.StatusBadGateway, "", fallbackReason(op))
	}
	defer resp.Body.Close()

	upstreamRequests.WithLabelValues(op, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, opError(op, http.StatusBadGateway, "", fallbackReason(op))
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			// Non-envelope body from a proxy or load balancer.
			if resp.StatusCode >= 400 {
				return nil, opError(op, resp.StatusCode, "", fallbackReason(op))
			}
			return nil, opError(op, http.StatusBadGateway, "", fallbackReason(op))
		}
	}

	if resp.StatusCode >= 400 || (len(raw) > 0 && !env.Success) {
		serverMsg := ""
		if env.Error != nil {
			serverMsg = env.Error.Message
		}
		status := resp.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		return nil, opError(op, status, serverMsg, fallbackReason(op))
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, opError(op, http.StatusBadGateway, "", fallbackReason(op))
		}
	}
	return env.Pagination, nil
}

// callJSON marshals a JSON request body and performs the call.
func (g *Gateway) callJSON(ctx context.Context, op, method, path string, payload, out any) (*Page, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Wrap(err, "encode upstream payload")
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}
	return g.call(ctx, op, method, path, nil, contentType, body, out)
}

// fallbackReason supplies the operation-specific message shown when the
// platform returned none.
func fallbackReason(op string) string {
	reasons := map[string]string{
		"category.fetch_list": "Failed to load categories",
		"category.fetch_one":  "Failed to load category",
		"category.create":     "Failed to create category",
		"category.update":     "Failed to update category",
		"category.delete":     "Failed to delete category",
		"category.reorder":    "Failed to reorder categories",
		"category.reparent":   "Failed to move category",
		"product.fetch_list":  "Failed to load products",
		"product.fetch_one":   "Failed to load product",
		"product.create":      "Failed to create product",
		"product.update":      "Failed to update product",
		"product.delete":      "Failed to delete product",
		"product.bulk_delete": "Failed to delete products",
		"product.bulk_update": "Failed to update products",
	}
	if reason, ok := reasons[op]; ok {
		return reason
	}
	return ""
}
