package catalog

import (
	"context"
	"fmt"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
	"github.com/Yoonyonggeun/mostarle-kr/internal/auth"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
	"github.com/Yoonyonggeun/mostarle-kr/internal/reconcile"
)

// Banners have exactly two fixed image slots instead of an ordered
// collection; each slot independently follows upload-new, delete-old,
// else keep.

type CreateBannerInput struct {
	LinkURL      *string
	DisplayOrder *int // defaults to max+1 across all banners
	IsActive     *bool
	Mobile       *FileUpload
	Desktop      *FileUpload
}

type UpdateBannerInput struct {
	ID           int64
	LinkURL      *string
	DisplayOrder *int
	IsActive     *bool
	Mobile       *FileUpload // nil keeps the current slot
	Desktop      *FileUpload
}

type BannerResult struct {
	ID int64 `json:"id"`
}

func (s *Service) CreateBanner(ctx context.Context, in CreateBannerInput) (BannerResult, error) {
	p, err := s.guard.RequireOperator(ctx)
	if err != nil {
		return BannerResult{}, err
	}

	if in.Mobile == nil || in.Desktop == nil {
		return BannerResult{}, apperr.Invalid("images", "banner needs both a mobile and a desktop image")
	}
	for _, f := range []FileUpload{*in.Mobile, *in.Desktop} {
		if err := checkImage(f); err != nil {
			return BannerResult{}, err
		}
	}

	displayOrder := 0
	if in.DisplayOrder != nil {
		displayOrder = *in.DisplayOrder
	} else {
		displayOrder, err = s.repo.NextDisplayOrder(ctx)
		if err != nil {
			return BannerResult{}, storeErr("compute banner order", err)
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	mobileKey, err := s.uploadBannerSlot(ctx, "mobile", *in.Mobile, nil)
	if err != nil {
		return BannerResult{}, err
	}
	desktopKey, err := s.uploadBannerSlot(ctx, "desktop", *in.Desktop, []string{mobileKey})
	if err != nil {
		return BannerResult{}, err
	}

	b := entities.Banner{
		LinkURL:         in.LinkURL,
		DisplayOrder:    displayOrder,
		IsActive:        active,
		MobileImageURL:  s.assets.PublicURL(mobileKey),
		DesktopImageURL: s.assets.PublicURL(desktopKey),
		OwnerID:         p.ID,
	}
	id, err := s.repo.InsertBanner(ctx, &b)
	if err != nil {
		s.compensateUploads(ctx, []string{mobileKey, desktopKey})
		return BannerResult{}, storeErr("insert banner", err)
	}

	s.flushCache(ctx)
	return BannerResult{ID: id}, nil
}

func (s *Service) UpdateBanner(ctx context.Context, in UpdateBannerInput) (BannerResult, error) {
	p, err := s.guard.RequireOperator(ctx)
	if err != nil {
		return BannerResult{}, err
	}

	b, err := s.repo.GetBanner(ctx, in.ID)
	if err != nil {
		return BannerResult{}, storeErr("load banner", err)
	}
	if err := auth.RequireOwner(p, b.OwnerID); err != nil {
		return BannerResult{}, err
	}

	for _, f := range []*FileUpload{in.Mobile, in.Desktop} {
		if f != nil {
			if err := checkImage(*f); err != nil {
				return BannerResult{}, err
			}
		}
	}

	var uploaded []string
	if in.Mobile != nil {
		key, err := s.uploadBannerSlot(ctx, "mobile", *in.Mobile, uploaded)
		if err != nil {
			return BannerResult{}, err
		}
		uploaded = append(uploaded, key)
		s.removeBannerObject(ctx, b.MobileImageURL)
		b.MobileImageURL = s.assets.PublicURL(key)
	}
	if in.Desktop != nil {
		key, err := s.uploadBannerSlot(ctx, "desktop", *in.Desktop, uploaded)
		if err != nil {
			return BannerResult{}, err
		}
		uploaded = append(uploaded, key)
		s.removeBannerObject(ctx, b.DesktopImageURL)
		b.DesktopImageURL = s.assets.PublicURL(key)
	}

	if in.LinkURL != nil {
		b.LinkURL = in.LinkURL
	}
	if in.DisplayOrder != nil {
		b.DisplayOrder = *in.DisplayOrder
	}
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}

	if err := s.repo.UpdateBanner(ctx, &b); err != nil {
		s.compensateUploads(ctx, uploaded)
		return BannerResult{}, storeErr("update banner", err)
	}

	s.flushCache(ctx)
	return BannerResult{ID: in.ID}, nil
}

func (s *Service) DeleteBanner(ctx context.Context, id int64) error {
	p, err := s.guard.RequireOperator(ctx)
	if err != nil {
		return err
	}

	b, err := s.repo.GetBanner(ctx, id)
	if err != nil {
		return storeErr("load banner", err)
	}
	if err := auth.RequireOwner(p, b.OwnerID); err != nil {
		return err
	}

	s.removeBannerObject(ctx, b.MobileImageURL)
	s.removeBannerObject(ctx, b.DesktopImageURL)

	if err := s.repo.DeleteBanner(ctx, id); err != nil {
		return storeErr("delete banner", err)
	}

	s.flushCache(ctx)
	return nil
}

// uploadBannerSlot uploads one slot; on failure it compensates the other
// uploads of the same request before reporting.
func (s *Service) uploadBannerSlot(ctx context.Context, slot string, f FileUpload, priorUploads []string) (string, error) {
	key := fmt.Sprintf("banners/%s/%d-%s", slot, s.now().UnixMilli(), reconcile.SanitizeName(f.Name))
	if err := s.assets.Upload(ctx, key, f.ContentType, f.Data); err != nil {
		s.compensateUploads(ctx, priorUploads)
		return "", apperr.Store("upload banner "+slot+" image", err)
	}
	return key, nil
}

// removeBannerObject drops a replaced or deleted slot's object. Best-effort:
// a missing blob never blocks the mutation.
func (s *Service) removeBannerObject(ctx context.Context, url string) {
	key, ok := s.assets.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.assets.Remove(ctx, key); err != nil {
		s.log.Warnw("banner asset delete failed", "key", key, "err", err)
		if s.janitor != nil {
			if jerr := s.janitor.EnqueueKeys(ctx, key); jerr != nil {
				s.log.Errorw("janitor enqueue failed", "key", key, "err", jerr)
			}
		}
	}
}

func (s *Service) compensateUploads(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := s.assets.Remove(ctx, keys...); err != nil {
		s.log.Warnw("banner compensation failed", "keys", keys, "err", err)
		if s.janitor != nil {
			_ = s.janitor.EnqueueKeys(ctx, keys...)
		}
	}
}
