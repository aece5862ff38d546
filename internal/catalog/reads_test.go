package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yoonyonggeun/mostarle-kr/internal/auth"
	"github.com/Yoonyonggeun/mostarle-kr/internal/cache"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
)

// memCache behaves like the redis-backed read cache: miss until stored,
// flush clears everything.
type memCache struct {
	entries map[string][]byte
	hits    int
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (m *memCache) GetJSON(_ context.Context, key string, dst any) error {
	raw, ok := m.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	m.hits++
	return json.Unmarshal(raw, dst)
}

func (m *memCache) StoreJSON(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCache) Flush(_ context.Context) error {
	m.entries = map[string][]byte{}
	return nil
}

func newCachedFixture() (*fixture, *memCache) {
	f := newFixture()
	mc := newMemCache()
	f.svc.cache = mc
	return f, mc
}

func TestListProductsCachesResult(t *testing.T) {
	f, mc := newCachedFixture()
	seedItem(f, "u1")

	first, err := f.svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Zero(t, mc.hits)

	second, err := f.svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, mc.hits)
}

func TestListBannersAnonymousSeesActiveOnly(t *testing.T) {
	f, _ := newCachedFixture()
	f.repo.banners[1] = entities.Banner{ID: 1, IsActive: true, OwnerID: "u1"}
	f.repo.banners[2] = entities.Banner{ID: 2, IsActive: false, OwnerID: "u1"}

	banners, err := f.svc.ListBanners(context.Background())
	require.NoError(t, err)
	require.Len(t, banners, 1)
	assert.Equal(t, int64(1), banners[0].ID)
}

func TestListBannersAuthenticatedSeesAllUncached(t *testing.T) {
	f, mc := newCachedFixture()
	f.repo.banners[1] = entities.Banner{ID: 1, IsActive: true, OwnerID: "u1"}
	f.repo.banners[2] = entities.Banner{ID: 2, IsActive: false, OwnerID: "u1"}

	ctx := auth.WithPrincipal(context.Background(), entities.Principal{ID: "u1", Email: "anyone@example.com"})
	banners, err := f.svc.ListBanners(ctx)
	require.NoError(t, err)
	assert.Len(t, banners, 2)
	assert.Empty(t, mc.entries)
}

func TestMutationFlushesReadCache(t *testing.T) {
	f, mc := newCachedFixture()
	seedItem(f, "u1")

	_, err := f.svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, mc.entries)

	_, err = f.svc.ToggleSoldOut(operatorCtx(), 7)
	require.NoError(t, err)
	assert.Empty(t, mc.entries)
}
