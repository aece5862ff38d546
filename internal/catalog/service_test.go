package catalog

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
	"github.com/Yoonyonggeun/mostarle-kr/internal/auth"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
	"github.com/Yoonyonggeun/mostarle-kr/internal/reconcile"
)

const operatorEmail = "staff@mostarle.kr"

type fakeRepo struct {
	items        map[int64]entities.CatalogItem
	banners      map[int64]entities.Banner
	takenSlugs   map[string]int64
	nextID       int64
	deletedItems []int64

	insertedItem  *entities.CatalogItem
	updatedItem   *entities.CatalogItem
	slugChecks    []string
	soldOutResult bool

	insertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:      map[int64]entities.CatalogItem{},
		banners:    map[int64]entities.Banner{},
		takenSlugs: map[string]int64{},
		nextID:     1,
	}
}

func (f *fakeRepo) InsertItem(_ context.Context, it *entities.CatalogItem) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	it.ID = f.nextID
	f.nextID++
	f.items[it.ID] = *it
	f.insertedItem = it
	return it.ID, nil
}

func (f *fakeRepo) GetItem(_ context.Context, id int64) (entities.CatalogItem, error) {
	it, ok := f.items[id]
	if !ok {
		return entities.CatalogItem{}, apperr.NotFound("product")
	}
	return it, nil
}

func (f *fakeRepo) GetItemBySlug(_ context.Context, slug string) (entities.CatalogItem, error) {
	for _, it := range f.items {
		if it.Slug == slug {
			return it, nil
		}
	}
	return entities.CatalogItem{}, apperr.NotFound("product")
}

func (f *fakeRepo) SlugExists(_ context.Context, slug string, excludeID int64) (bool, error) {
	f.slugChecks = append(f.slugChecks, slug)
	id, ok := f.takenSlugs[slug]
	return ok && id != excludeID, nil
}

func (f *fakeRepo) UpdateItemScalars(_ context.Context, it *entities.CatalogItem) error {
	if _, ok := f.items[it.ID]; !ok {
		return apperr.NotFound("product")
	}
	f.items[it.ID] = *it
	f.updatedItem = it
	return nil
}

func (f *fakeRepo) ToggleSoldOut(_ context.Context, id int64) (bool, error) {
	it := f.items[id]
	it.SoldOut = !it.SoldOut
	f.items[id] = it
	f.soldOutResult = it.SoldOut
	return it.SoldOut, nil
}

func (f *fakeRepo) DeleteItem(_ context.Context, id int64) error {
	delete(f.items, id)
	f.deletedItems = append(f.deletedItems, id)
	return nil
}

func (f *fakeRepo) ListItems(_ context.Context) ([]entities.CatalogItem, error) {
	var out []entities.CatalogItem
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeRepo) ListImages(_ context.Context, _ int64) ([]entities.CatalogItemImage, error) {
	return nil, nil
}

func (f *fakeRepo) ListDetails(_ context.Context, _ int64) ([]entities.CatalogItemDetail, error) {
	return nil, nil
}

func (f *fakeRepo) InsertBanner(_ context.Context, b *entities.Banner) (int64, error) {
	b.ID = f.nextID
	f.nextID++
	f.banners[b.ID] = *b
	return b.ID, nil
}

func (f *fakeRepo) GetBanner(_ context.Context, id int64) (entities.Banner, error) {
	b, ok := f.banners[id]
	if !ok {
		return entities.Banner{}, apperr.NotFound("banner")
	}
	return b, nil
}

func (f *fakeRepo) UpdateBanner(_ context.Context, b *entities.Banner) error {
	if _, ok := f.banners[b.ID]; !ok {
		return apperr.NotFound("banner")
	}
	f.banners[b.ID] = *b
	return nil
}

func (f *fakeRepo) DeleteBanner(_ context.Context, id int64) error {
	delete(f.banners, id)
	return nil
}

func (f *fakeRepo) ListBanners(_ context.Context, activeOnly bool) ([]entities.Banner, error) {
	var out []entities.Banner
	for _, b := range f.banners {
		if activeOnly && !b.IsActive {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeRepo) NextDisplayOrder(_ context.Context) (int, error) {
	return len(f.banners), nil
}

type syncCall struct {
	parentID int64
	keptIDs  []int64
	payloads int
}

type fakeReconciler struct {
	calls  []syncCall
	failOn int // 1-based call index to fail; 0 never fails
}

func (f *fakeReconciler) Sync(_ context.Context, _ reconcile.Collection, parentID int64, keptIDs []int64, payloads []reconcile.NewPayload) error {
	f.calls = append(f.calls, syncCall{parentID: parentID, keptIDs: keptIDs, payloads: len(payloads)})
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return apperr.Store("upload", errors.New("bucket unavailable"))
	}
	return nil
}

type fakeAssetStore struct {
	uploads  []string
	removed  []string
	prefixes []string

	failUploadOn int // 1-based upload index to fail; 0 never fails
}

func (f *fakeAssetStore) Upload(_ context.Context, key, _ string, _ []byte) error {
	if f.failUploadOn > 0 && len(f.uploads)+1 == f.failUploadOn {
		return errors.New("bucket unavailable")
	}
	f.uploads = append(f.uploads, key)
	return nil
}

func (f *fakeAssetStore) PublicURL(key string) string { return "https://cdn.example/" + key }

func (f *fakeAssetStore) KeyFromURL(url string) (string, bool) {
	const prefix = "https://cdn.example/"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):], true
	}
	return "", false
}

func (f *fakeAssetStore) Remove(_ context.Context, keys ...string) error {
	f.removed = append(f.removed, keys...)
	return nil
}

func (f *fakeAssetStore) RemovePrefix(_ context.Context, prefix string) error {
	f.prefixes = append(f.prefixes, prefix)
	return nil
}

type fakeJanitor struct {
	keys     []string
	prefixes []string
}

func (f *fakeJanitor) EnqueueKeys(_ context.Context, keys ...string) error {
	f.keys = append(f.keys, keys...)
	return nil
}

func (f *fakeJanitor) EnqueuePrefix(_ context.Context, prefix string) error {
	f.prefixes = append(f.prefixes, prefix)
	return nil
}

type fakeCache struct {
	flushes int
}

func (f *fakeCache) GetJSON(_ context.Context, _ string, _ any) error { return errors.New("miss") }
func (f *fakeCache) StoreJSON(_ context.Context, _ string, _ any) error {
	return nil
}
func (f *fakeCache) Flush(_ context.Context) error {
	f.flushes++
	return nil
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	engine  *fakeReconciler
	assets  *fakeAssetStore
	janitor *fakeJanitor
	cache   *fakeCache
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newFakeRepo(),
		engine:  &fakeReconciler{},
		assets:  &fakeAssetStore{},
		janitor: &fakeJanitor{},
		cache:   &fakeCache{},
	}
	guard := auth.NewGuard([]string{operatorEmail})
	f.svc = New(guard, f.repo, nil, nil, f.assets, f.engine, f.janitor, f.cache, zap.NewNop().Sugar())
	return f
}

func operatorCtx() context.Context {
	return auth.WithPrincipal(context.Background(), entities.Principal{ID: "u1", Email: operatorEmail})
}

func pngUpload(t *testing.T, name string) FileUpload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return FileUpload{Name: name, ContentType: "image/png", Data: buf.Bytes()}
}

func validCreateInput(t *testing.T) CreateProductInput {
	return CreateProductInput{
		ProductFields: ProductFields{Title: "나무 상자", Price: 45000, WorkingTime: 120},
		Images:        []FileUpload{pngUpload(t, "front.png")},
	}
}

func TestCreateProductRequiresAuthentication(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateProduct(context.Background(), validCreateInput(t))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestCreateProductRequiresOperator(t *testing.T) {
	f := newFixture()
	ctx := auth.WithPrincipal(context.Background(), entities.Principal{ID: "u2", Email: "visitor@example.com"})
	_, err := f.svc.CreateProduct(ctx, validCreateInput(t))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture()
	bad := int16(9)

	tests := []struct {
		name   string
		mutate func(*CreateProductInput)
		field  string
	}{
		{"missing title", func(in *CreateProductInput) { in.Title = "" }, "title"},
		{"zero price", func(in *CreateProductInput) { in.Price = 0 }, "price"},
		{"zero working time", func(in *CreateProductInput) { in.WorkingTime = 0 }, "working_time"},
		{"difficulty out of range", func(in *CreateProductInput) { in.Difficulty = &bad }, "difficulty"},
		{"no images", func(in *CreateProductInput) { in.Images = nil }, "images"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateInput(t)
			tt.mutate(&in)
			_, err := f.svc.CreateProduct(operatorCtx(), in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Contains(t, ae.Fields, tt.field)
		})
	}
	assert.Empty(t, f.engine.calls)
}

func TestCreateProductRejectsUndecodableImage(t *testing.T) {
	f := newFixture()
	in := validCreateInput(t)
	in.Images = []FileUpload{{Name: "fake.png", ContentType: "image/png", Data: []byte("not a png")}}

	_, err := f.svc.CreateProduct(operatorCtx(), in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Nil(t, f.repo.insertedItem)
}

func TestCreateProductSlugConflict(t *testing.T) {
	f := newFixture()
	f.repo.takenSlugs["나무-상자"] = 99

	_, err := f.svc.CreateProduct(operatorCtx(), validCreateInput(t))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Nil(t, f.repo.insertedItem)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture()
	in := validCreateInput(t)
	in.Details = []DetailInput{{Title: "구성", Description: "원목 상자와 뚜껑"}}

	res, err := f.svc.CreateProduct(operatorCtx(), in)
	require.NoError(t, err)
	assert.Equal(t, "나무-상자", res.Slug)

	require.NotNil(t, f.repo.insertedItem)
	assert.Equal(t, "u1", f.repo.insertedItem.OwnerID)

	require.Len(t, f.engine.calls, 2)
	assert.Equal(t, res.ID, f.engine.calls[0].parentID)
	assert.Equal(t, 1, f.engine.calls[0].payloads) // images
	assert.Equal(t, 1, f.engine.calls[1].payloads) // details
	assert.Equal(t, 1, f.cache.flushes)
}

func TestCreateProductRollsBackOnReconcileFailure(t *testing.T) {
	f := newFixture()
	f.engine.failOn = 1

	_, err := f.svc.CreateProduct(operatorCtx(), validCreateInput(t))
	require.Error(t, err)
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))

	require.Len(t, f.repo.deletedItems, 1)
	assert.Equal(t, []string{"1/"}, f.janitor.prefixes)
	assert.Zero(t, f.cache.flushes)
}

func seedItem(f *fixture, owner string) entities.CatalogItem {
	it := entities.CatalogItem{
		ID: 7, Title: "나무 상자", Slug: "나무-상자",
		Price: 45000, WorkingTime: 120, OwnerID: owner,
	}
	f.repo.items[it.ID] = it
	f.repo.takenSlugs[it.Slug] = it.ID
	return it
}

func validUpdateInput(it entities.CatalogItem) UpdateProductInput {
	return UpdateProductInput{
		ID: it.ID,
		ProductFields: ProductFields{
			Title: it.Title, Price: it.Price, WorkingTime: it.WorkingTime,
		},
		KeptImageIDs: []int64{31},
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	f := newFixture()
	in := validUpdateInput(entities.CatalogItem{ID: 404, Title: "x", Price: 1, WorkingTime: 1})

	_, err := f.svc.UpdateProduct(operatorCtx(), in)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateProductOwnershipIsolation(t *testing.T) {
	f := newFixture()
	it := seedItem(f, "someone-else")

	_, err := f.svc.UpdateProduct(operatorCtx(), validUpdateInput(it))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Empty(t, f.engine.calls)
}

func TestUpdateProductRejectsEmptyImageSetBeforeStores(t *testing.T) {
	f := newFixture()
	it := seedItem(f, "u1")

	in := validUpdateInput(it)
	in.KeptImageIDs = nil

	_, err := f.svc.UpdateProduct(operatorCtx(), in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, f.engine.calls)
	assert.Nil(t, f.repo.updatedItem)
}

func TestUpdateProductSkipsSlugCheckWhenUnchanged(t *testing.T) {
	f := newFixture()
	it := seedItem(f, "u1")

	_, err := f.svc.UpdateProduct(operatorCtx(), validUpdateInput(it))
	require.NoError(t, err)
	assert.Empty(t, f.repo.slugChecks)
}

func TestUpdateProductSlugConflictOnRetitle(t *testing.T) {
	f := newFixture()
	it := seedItem(f, "u1")
	f.repo.takenSlugs["자작나무-선반"] = 99

	in := validUpdateInput(it)
	in.Title = "자작나무 선반"

	_, err := f.svc.UpdateProduct(operatorCtx(), in)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Empty(t, f.engine.calls)
}

func TestUpdateProductSyncsBothCollectionsThenScalars(t *testing.T) {
	f := newFixture()
	it := seedItem(f, "u1")

	in := validUpdateInput(it)
	in.NewImages = []FileUpload{pngUpload(t, "side.png")}
	in.KeptDetailIDs = []int64{51}
	in.Price = 52000

	res, err := f.svc.UpdateProduct(operatorCtx(), in)
	require.NoError(t, err)
	assert.Equal(t, it.Slug, res.Slug)

	require.Len(t, f.engine.calls, 2)
	assert.Equal(t, []int64{31}, f.engine.calls[0].keptIDs)
	assert.Equal(t, 1, f.engine.calls[0].payloads)
	assert.Equal(t, []int64{51}, f.engine.calls[1].keptIDs)

	require.NotNil(t, f.repo.updatedItem)
	assert.Equal(t, 52000.0, f.repo.updatedItem.Price)
	assert.Equal(t, 1, f.cache.flushes)
}

func TestUpdateProductLeavesScalarsOnReconcileFailure(t *testing.T) {
	f := newFixture()
	it := seedItem(f, "u1")
	f.engine.failOn = 1

	in := validUpdateInput(it)
	in.Price = 99000

	_, err := f.svc.UpdateProduct(operatorCtx(), in)
	require.Error(t, err)
	assert.Nil(t, f.repo.updatedItem)
	assert.Equal(t, 45000.0, f.repo.items[it.ID].Price)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture()
	seedItem(f, "u1")

	require.NoError(t, f.svc.DeleteProduct(operatorCtx(), 7))

	assert.Equal(t, []string{"7/"}, f.assets.prefixes)
	assert.Equal(t, []string{"7/"}, f.janitor.prefixes)
	assert.Equal(t, []int64{7}, f.repo.deletedItems)
	assert.Equal(t, 1, f.cache.flushes)
}

func TestDeleteProductOwnershipIsolation(t *testing.T) {
	f := newFixture()
	seedItem(f, "someone-else")

	err := f.svc.DeleteProduct(operatorCtx(), 7)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Empty(t, f.repo.deletedItems)
	assert.Empty(t, f.assets.prefixes)
}

func TestToggleSoldOut(t *testing.T) {
	f := newFixture()
	seedItem(f, "u1")

	soldOut, err := f.svc.ToggleSoldOut(operatorCtx(), 7)
	require.NoError(t, err)
	assert.True(t, soldOut)

	soldOut, err = f.svc.ToggleSoldOut(operatorCtx(), 7)
	require.NoError(t, err)
	assert.False(t, soldOut)
}
