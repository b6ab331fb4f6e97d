package cache_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ogero/movie-catalog/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type movie struct {
	Title string
	Year  string
}

func openTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoize(t *testing.T) {
	c := openTestCache(t)

	calls := 0
	fn := func() (*movie, error) {
		calls++
		return &movie{Title: "The Matrix", Year: "1999"}, nil
	}

	v, hit, err := cache.Memoize[movie](c, "catalog.detail : tt0133093", time.Hour, fn)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "The Matrix", v.Title)

	v, hit, err = cache.Memoize[movie](c, "catalog.detail : tt0133093", time.Hour, fn)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "1999", v.Year)
	assert.Equal(t, 1, calls)
}

func TestMemoizeDoesNotStoreErrors(t *testing.T) {
	c := openTestCache(t)

	errBoom := errors.New("boom")
	calls := 0
	fn := func() (*movie, error) {
		calls++
		return nil, errBoom
	}

	_, _, err := cache.Memoize[movie](c, "catalog.title : Nope", time.Hour, fn)
	assert.ErrorIs(t, err, errBoom)

	_, hit, err := cache.Memoize[movie](c, "catalog.title : Nope", time.Hour, fn)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestMemoizeSlices(t *testing.T) {
	c := openTestCache(t)

	items := []movie{{Title: "A"}, {Title: "B"}}
	_, _, err := cache.Memoize[[]movie](c, "catalog.search : x||", time.Hour, func() (*[]movie, error) {
		return &items, nil
	})
	require.NoError(t, err)

	got, hit, err := cache.Memoize[[]movie](c, "catalog.search : x||", time.Hour, func() (*[]movie, error) {
		t.Fatal("unexpected call")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, items, *got)
}

type unstorable struct {
	Title   string
	Refresh func()
}

func TestMemoizeReturnsValueWhenStoreFails(t *testing.T) {
	c := openTestCache(t)

	calls := 0
	fn := func() (*unstorable, error) {
		calls++
		return &unstorable{Title: "The Matrix", Refresh: func() {}}, nil
	}

	v, hit, err := cache.Memoize[unstorable](c, "catalog.title : The Matrix", time.Hour, fn)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "The Matrix", v.Title)

	// Nothing was stored, so the next lookup goes upstream again.
	_, hit, err = cache.Memoize[unstorable](c, "catalog.title : The Matrix", time.Hour, fn)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}
