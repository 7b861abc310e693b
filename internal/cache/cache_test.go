package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/lecturecast/internal/domain"
)

// exerciseClient checks the Client contract against any backend.
func exerciseClient(t *testing.T, c Client) {
	ctx := context.Background()

	_, err := c.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "result:a:1", []byte("one"), time.Minute))
	require.NoError(t, c.Set(ctx, "result:a:2", []byte("two"), time.Minute))
	require.NoError(t, c.Set(ctx, "result:b:1", []byte("three"), time.Minute))

	got, err := c.Get(ctx, "result:a:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	require.NoError(t, c.Delete(ctx, "result:a:1"))
	_, err = c.Get(ctx, "result:a:1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.DeleteByPrefix(ctx, "result:a:"))
	_, err = c.Get(ctx, "result:a:2")
	assert.ErrorIs(t, err, ErrCacheMiss)

	got, err = c.Get(ctx, "result:b:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), got)
}

func TestMemoryClient(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	exerciseClient(t, c)
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("x"), 10*time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", []byte("y"), 0))
	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryClient_EvictsWhenFull(t *testing.T) {
	c := NewMemoryClient(2)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "soon", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "later", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	_, err := c.Get(ctx, "soon")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "later")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "new")
	assert.NoError(t, err)

	// overwriting an existing key does not evict
	require.NoError(t, c.Set(ctx, "new", []byte("4"), time.Hour))
	_, err = c.Get(ctx, "later")
	assert.NoError(t, err)
}

func TestMemoryClient_CloseTwice(t *testing.T) {
	c := NewMemoryClient(1)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestResultStore(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	store := NewResultStore(c, time.Hour)
	ctx := context.Background()

	first := domain.ResultPayload{RunID: "r1", Namespace: "ns", Filename: "deck.pptx", PageCount: 2, SlideCount: 2,
		AudioURLs: []string{"/static/ns/audio/slide_1.mp3", ""}}
	require.NoError(t, store.Put(ctx, first))

	got, err := store.Get(ctx, "ns", "r1")
	require.NoError(t, err)
	assert.Equal(t, first.AudioURLs, got.AudioURLs)
	assert.Equal(t, 2, got.SlideCount)

	// a newer run in the namespace invalidates older payloads
	require.NoError(t, store.Put(ctx, domain.ResultPayload{RunID: "r2", Namespace: "ns"}))
	_, err = store.Get(ctx, "ns", "r1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = store.Get(ctx, "ns", "r2")
	assert.NoError(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "a:b:c", Key("a", "b", "c"))
	assert.Equal(t, "result:ns:", ResultKeyPrefix("ns"))
	assert.Equal(t, "result:ns:run", ResultKey("ns", "run"))
}
