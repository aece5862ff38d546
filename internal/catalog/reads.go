package catalog

import (
	"context"
	"errors"

	"github.com/Yoonyonggeun/mostarle-kr/internal/auth"
	"github.com/Yoonyonggeun/mostarle-kr/internal/cache"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
)

// Read shapes. Catalog reads are public; banners hide inactive rows from
// anonymous callers.

func (s *Service) GetProduct(ctx context.Context, id int64) (entities.CatalogItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return item, storeErr("load product", err)
	}
	return s.withChildren(ctx, item)
}

func (s *Service) GetProductBySlug(ctx context.Context, slug string) (entities.CatalogItem, error) {
	item, err := s.repo.GetItemBySlug(ctx, slug)
	if err != nil {
		return item, storeErr("load product", err)
	}
	return s.withChildren(ctx, item)
}

func (s *Service) withChildren(ctx context.Context, item entities.CatalogItem) (entities.CatalogItem, error) {
	var err error
	if item.Images, err = s.repo.ListImages(ctx, item.ID); err != nil {
		return item, storeErr("load images", err)
	}
	if item.Details, err = s.repo.ListDetails(ctx, item.ID); err != nil {
		return item, storeErr("load details", err)
	}
	return item, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]entities.CatalogItem, error) {
	const key = "products"

	if s.cache != nil {
		var cached []entities.CatalogItem
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warnw("product cache read failed", "err", err)
		}
	}

	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, storeErr("list products", err)
	}

	if s.cache != nil {
		if err := s.cache.StoreJSON(ctx, key, items); err != nil {
			s.log.Warnw("product cache write failed", "err", err)
		}
	}
	return items, nil
}

// ListBanners returns every banner for an authenticated caller and only the
// active ones, cached, for everyone else.
func (s *Service) ListBanners(ctx context.Context) ([]entities.Banner, error) {
	if _, ok := auth.PrincipalFrom(ctx); ok {
		banners, err := s.repo.ListBanners(ctx, false)
		if err != nil {
			return nil, storeErr("list banners", err)
		}
		return banners, nil
	}

	const key = "banners"
	if s.cache != nil {
		var cached []entities.Banner
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warnw("banner cache read failed", "err", err)
		}
	}

	banners, err := s.repo.ListBanners(ctx, true)
	if err != nil {
		return nil, storeErr("list banners", err)
	}

	if s.cache != nil {
		if err := s.cache.StoreJSON(ctx, key, banners); err != nil {
			s.log.Warnw("banner cache write failed", "err", err)
		}
	}
	return banners, nil
}
