package sdk

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/birb-pay/sdk/internal/sdktest"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte("payload")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'X'

	got, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("payload"), got, "stored values are copies")

	require.NoError(t, c.Delete(ctx, "k"))
	_, found, _ = c.Get(ctx, "k")
	assert.False(t, found)
	assert.NoError(t, c.Delete(ctx, "k"), "deleting a missing key is fine")
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))
	assert.Equal(t, 2, c.Len())

	sdktest.RequireEventuallyConsistent(t, func() bool {
		_, found, _ := c.Get(ctx, "short")
		return !found
	}, time.Second, 10*time.Millisecond)

	_, found, _ := c.Get(ctx, "forever")
	assert.True(t, found)
	assert.Equal(t, 1, c.Len(), "expired entry dropped on access")
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	helper := sdktest.NewConcurrentTestHelper(t)
	helper.Run(16, func(id int) error {
		for i := 0; i < 100; i++ {
			key := fmt.Sprintf("k%d", (id*100+i)%64)
			if err := c.Set(ctx, key, []byte(key), time.Minute); err != nil {
				return err
			}
			if _, _, err := c.Get(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
	helper.Wait()

	assert.Equal(t, 64, c.Len())
}

func TestCachedResponseRoundTrip(t *testing.T) {
	resp := &Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`{"version":"6:0:2"}`),
	}

	data, err := encodeCachedResponse(resp)
	require.NoError(t, err)

	decoded, err := decodeCachedResponse(data)
	require.NoError(t, err)
	assert.Equal(t, resp.StatusCode, decoded.StatusCode)
	assert.Equal(t, resp.Header, decoded.Header)
	assert.Equal(t, resp.Body, decoded.Body)
	assert.True(t, decoded.FromCache)

	_, err = decodeCachedResponse([]byte("not json"))
	assert.Error(t, err)
}

func TestPipeline_CorruptCacheEntryIsAMiss(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	cache := NewMemoryCache()
	require.NoError(t, cache.Set(ts.Context, "cfg", []byte("garbage"), 0))
	client, hook := newSuiteClient(t, ts, WithCacheStore(cache))

	_, err := client.Execute(ts.Context, &Request{Path: "configuration", Cache: WithCache(time.Minute, "cfg")})
	require.NoError(t, err)

	assert.Equal(t, 1, ts.Server.GetRequestCount())
	require.Len(t, hook.AllEntries(), 1)

	data, found, _ := cache.Get(ts.Context, "cfg")
	require.True(t, found)
	_, err = decodeCachedResponse(data)
	assert.NoError(t, err, "entry replaced by the fresh response")
}

func TestMemoryCache_SpreadsKeysAcrossShards(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	for i := 0; i < 256; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), 0))
	}
	assert.Equal(t, 256, c.Len())

	used := 0
	for _, s := range c.shards {
		if len(s.items) > 0 {
			used++
		}
	}
	assert.Greater(t, used, memoryCacheShards/2)

	// a key always lands on the same shard
	assert.Same(t, c.shard("key-7"), c.shard("key-7"))
}
