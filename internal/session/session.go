package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/storeloom/console/pkg/errors"
)

type contextKey string

const (
	merchantIDKey contextKey = "merchant_id"
	storeIDKey    contextKey = "store_id"
)

// WithMerchantID returns a context carrying the authenticated merchant's ID.
func WithMerchantID(ctx context.Context, merchantID string) context.Context {
	return context.WithValue(ctx, merchantIDKey, merchantID)
}

// MerchantID extracts the merchant ID set during authentication.
func MerchantID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(merchantIDKey).(string)
	return id, ok && id != ""
}

// WithStoreID returns a context carrying the resolved tenant store ID.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, storeIDKey, storeID)
}

// StoreID extracts the resolved tenant store ID.
func StoreID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(storeIDKey).(string)
	return id, ok && id != ""
}

// Resolver maps an authenticated merchant to their tenant store. A merchant
// without a provisioned store resolves to a no-store error, which every
// mutation treats as a precondition failure.
type Resolver interface {
	ResolveStore(ctx context.Context, merchantID string) (string, error)
}

// RedisResolver looks up the merchant-to-store binding in the session store
// shared with the platform's auth service. The binding is written there when
// the merchant provisions a store; this service only reads it.
type RedisResolver struct {
	client *redis.Client
}

// NewRedisResolver creates a resolver backed by the given Redis client.
func NewRedisResolver(client *redis.Client) *RedisResolver {
	return &RedisResolver{client: client}
}

func sessionKey(merchantID string) string {
	return fmt.Sprintf("session:merchant:%s:store", merchantID)
}

// ResolveStore returns the store ID bound to the merchant, or a no-store
// error when no binding exists.
func (r *RedisResolver) ResolveStore(ctx context.Context, merchantID string) (string, error) {
	storeID, err := r.client.Get(ctx, sessionKey(merchantID)).Result()
	if err == redis.Nil {
		return "", apperrors.NoStore()
	}
	if err != nil {
		return "", apperrors.Wrap(err, "resolve store binding")
	}
	if storeID == "" {
		return "", apperrors.NoStore()
	}
	return storeID, nil
}

// Ping verifies the session store is reachable.
func (r *RedisResolver) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Static is a fixed in-memory merchant-to-store mapping for tests.
type Static map[string]string

// ResolveStore returns the mapped store ID or a no-store error.
func (s Static) ResolveStore(_ context.Context, merchantID string) (string, error) {
	storeID, ok := s[merchantID]
	if !ok || storeID == "" {
		return "", apperrors.NoStore()
	}
	return storeID, nil
}
