package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/storeloom/console/pkg/errors"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	_, ok := MerchantID(ctx)
	assert.False(t, ok)

	ctx = WithMerchantID(ctx, "m-1")
	ctx = WithStoreID(ctx, "s-1")

	merchantID, ok := MerchantID(ctx)
	require.True(t, ok)
	assert.Equal(t, "m-1", merchantID)

	storeID, ok := StoreID(ctx)
	require.True(t, ok)
	assert.Equal(t, "s-1", storeID)
}

func TestStaticResolver(t *testing.T) {
	resolver := Static{"m-1": "s-1", "m-empty": ""}

	t.Run("resolves a bound merchant", func(t *testing.T) {
		storeID, err := resolver.ResolveStore(context.Background(), "m-1")
		require.NoError(t, err)
		assert.Equal(t, "s-1", storeID)
	})

	t.Run("unbound merchant has no store", func(t *testing.T) {
		_, err := resolver.ResolveStore(context.Background(), "m-2")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNoStore)
	})

	t.Run("empty binding counts as no store", func(t *testing.T) {
		_, err := resolver.ResolveStore(context.Background(), "m-empty")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNoStore)
	})
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:merchant:m-1:store", sessionKey("m-1"))
}
