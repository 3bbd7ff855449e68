package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/birb-pay/sdk"
)

// testStoreContract runs the sdk.Cache behavior every backend must share
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, found, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "cfg", []byte(`{"version":"6:0:2"}`), time.Minute))

		got, found, err := store.Get(ctx, "cfg")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, `{"version":"6:0:2"}`, string(got))

		require.NoError(t, store.Delete(ctx, "cfg"))
		_, found, err = store.Get(ctx, "cfg")
		require.NoError(t, err)
		assert.False(t, found)

		assert.NoError(t, store.Delete(ctx, "cfg"), "deleting a missing key is fine")
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k", []byte("one"), time.Minute))
		require.NoError(t, store.Set(ctx, "k", []byte("two"), time.Minute))

		got, found, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "two", string(got))
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Second))

		assert.Eventually(t, func() bool {
			_, found, err := store.Get(ctx, "short")
			return err == nil && !found
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

// testPipelineCaching drives an SDK client against a local server with the
// store as its response cache.
func testPipelineCaching(t *testing.T, store Store) {
	var hits atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"6:0:2","environment":"sandbox"}`))
	}))
	defer server.Close()

	cfg, err := sdk.NewConfig(server.URL)
	require.NoError(t, err)
	client, err := sdk.NewClient(cfg, sdk.WithHTTPClient(server.Client()), sdk.WithCacheStore(store))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		serverCfg, err := client.FetchServerConfiguration(ctx, sdk.WithCache(time.Minute, "server-config"))
		require.NoError(t, err)
		assert.Equal(t, "6:0:2", serverCfg.Version)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, found, err := store.Get(ctx, "server-config")
	require.NoError(t, err)
	assert.True(t, found)
}
