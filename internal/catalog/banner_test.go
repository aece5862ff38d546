package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
	"github.com/Yoonyonggeun/mostarle-kr/internal/auth"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
)

func validBannerInput(t *testing.T) CreateBannerInput {
	mobile := pngUpload(t, "mobile.png")
	desktop := pngUpload(t, "desktop.png")
	return CreateBannerInput{Mobile: &mobile, Desktop: &desktop}
}

func TestCreateBannerRequiresBothSlots(t *testing.T) {
	f := newFixture()

	in := validBannerInput(t)
	in.Desktop = nil

	_, err := f.svc.CreateBanner(operatorCtx(), in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, f.assets.uploads)
}

func TestCreateBannerDefaults(t *testing.T) {
	f := newFixture()
	f.repo.banners[1] = entities.Banner{ID: 1, OwnerID: "u1"}
	f.repo.nextID = 2

	res, err := f.svc.CreateBanner(operatorCtx(), validBannerInput(t))
	require.NoError(t, err)

	b := f.repo.banners[res.ID]
	assert.True(t, b.IsActive)
	assert.Equal(t, 1, b.DisplayOrder) // appended after the existing banner
	assert.Equal(t, "u1", b.OwnerID)
	assert.True(t, strings.Contains(b.MobileImageURL, "banners/mobile/"))
	assert.True(t, strings.Contains(b.DesktopImageURL, "banners/desktop/"))

	require.Len(t, f.assets.uploads, 2)
	assert.True(t, strings.HasPrefix(f.assets.uploads[0], "banners/mobile/"))
	assert.True(t, strings.HasPrefix(f.assets.uploads[1], "banners/desktop/"))
	assert.Equal(t, 1, f.cache.flushes)
}

func TestCreateBannerExplicitFields(t *testing.T) {
	f := newFixture()

	link := "https://mostarle.kr/event"
	order := 3
	inactive := false

	in := validBannerInput(t)
	in.LinkURL = &link
	in.DisplayOrder = &order
	in.IsActive = &inactive

	res, err := f.svc.CreateBanner(operatorCtx(), in)
	require.NoError(t, err)

	b := f.repo.banners[res.ID]
	require.NotNil(t, b.LinkURL)
	assert.Equal(t, link, *b.LinkURL)
	assert.Equal(t, 3, b.DisplayOrder)
	assert.False(t, b.IsActive)
}

func TestCreateBannerCompensatesFirstSlotOnSecondFailure(t *testing.T) {
	f := newFixture()
	f.assets.failUploadOn = 2 // desktop upload fails

	_, err := f.svc.CreateBanner(operatorCtx(), validBannerInput(t))
	require.Error(t, err)
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))

	require.Len(t, f.assets.uploads, 1)
	assert.Equal(t, f.assets.uploads, f.assets.removed)
	assert.Empty(t, f.repo.banners)
}

func seedBanner(f *fixture, owner string) entities.Banner {
	b := entities.Banner{
		ID:              9,
		DisplayOrder:    0,
		IsActive:        true,
		MobileImageURL:  "https://cdn.example/banners/mobile/1-old.png",
		DesktopImageURL: "https://cdn.example/banners/desktop/1-old.png",
		OwnerID:         owner,
	}
	f.repo.banners[b.ID] = b
	return b
}

func TestUpdateBannerReplacesOneSlot(t *testing.T) {
	f := newFixture()
	seedBanner(f, "u1")

	mobile := pngUpload(t, "fresh.png")
	_, err := f.svc.UpdateBanner(operatorCtx(), UpdateBannerInput{ID: 9, Mobile: &mobile})
	require.NoError(t, err)

	b := f.repo.banners[9]
	assert.NotEqual(t, "https://cdn.example/banners/mobile/1-old.png", b.MobileImageURL)
	assert.Equal(t, "https://cdn.example/banners/desktop/1-old.png", b.DesktopImageURL)

	// the superseded mobile object is removed, the desktop one is untouched
	assert.Equal(t, []string{"banners/mobile/1-old.png"}, f.assets.removed)
}

func TestUpdateBannerScalarsOnly(t *testing.T) {
	f := newFixture()
	seedBanner(f, "u1")

	inactive := false
	_, err := f.svc.UpdateBanner(operatorCtx(), UpdateBannerInput{ID: 9, IsActive: &inactive})
	require.NoError(t, err)

	assert.False(t, f.repo.banners[9].IsActive)
	assert.Empty(t, f.assets.uploads)
	assert.Empty(t, f.assets.removed)
}

func TestUpdateBannerOwnershipIsolation(t *testing.T) {
	f := newFixture()
	seedBanner(f, "someone-else")

	_, err := f.svc.UpdateBanner(operatorCtx(), UpdateBannerInput{ID: 9})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUpdateBannerNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateBanner(operatorCtx(), UpdateBannerInput{ID: 404})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteBannerRemovesBothObjects(t *testing.T) {
	f := newFixture()
	seedBanner(f, "u1")

	require.NoError(t, f.svc.DeleteBanner(operatorCtx(), 9))

	assert.Empty(t, f.repo.banners)
	assert.ElementsMatch(t, []string{
		"banners/mobile/1-old.png",
		"banners/desktop/1-old.png",
	}, f.assets.removed)
	assert.Equal(t, 1, f.cache.flushes)
}

func TestDeleteBannerRequiresOperator(t *testing.T) {
	f := newFixture()
	seedBanner(f, "u1")

	ctx := auth.WithPrincipal(context.Background(), entities.Principal{ID: "u1", Email: "visitor@example.com"})
	err := f.svc.DeleteBanner(ctx, 9)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Len(t, f.repo.banners, 1)
}
