// Package catalog is the mutation coordinator: each operation is a short
// request-scoped saga over the relational store, the asset store and the
// child-collection reconciliation engine.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
	"github.com/Yoonyonggeun/mostarle-kr/internal/auth"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
	"github.com/Yoonyonggeun/mostarle-kr/internal/processor"
	"github.com/Yoonyonggeun/mostarle-kr/internal/reconcile"
)

type Repository interface {
	InsertItem(ctx context.Context, it *entities.CatalogItem) (int64, error)
	GetItem(ctx context.Context, id int64) (entities.CatalogItem, error)
	GetItemBySlug(ctx context.Context, slug string) (entities.CatalogItem, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	UpdateItemScalars(ctx context.Context, it *entities.CatalogItem) error
	ToggleSoldOut(ctx context.Context, id int64) (bool, error)
	DeleteItem(ctx context.Context, id int64) error
	ListItems(ctx context.Context) ([]entities.CatalogItem, error)
	ListImages(ctx context.Context, itemID int64) ([]entities.CatalogItemImage, error)
	ListDetails(ctx context.Context, itemID int64) ([]entities.CatalogItemDetail, error)

	InsertBanner(ctx context.Context, b *entities.Banner) (int64, error)
	GetBanner(ctx context.Context, id int64) (entities.Banner, error)
	UpdateBanner(ctx context.Context, b *entities.Banner) error
	DeleteBanner(ctx context.Context, id int64) error
	ListBanners(ctx context.Context, activeOnly bool) ([]entities.Banner, error)
	NextDisplayOrder(ctx context.Context) (int, error)
}

type AssetStore interface {
	Upload(ctx context.Context, key string, contentType string, payload []byte) error
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
	Remove(ctx context.Context, keys ...string) error
	RemovePrefix(ctx context.Context, prefix string) error
}

type Reconciler interface {
	Sync(ctx context.Context, coll reconcile.Collection, parentID int64, keptIDs []int64, payloads []reconcile.NewPayload) error
}

type Janitor interface {
	EnqueueKeys(ctx context.Context, keys ...string) error
	EnqueuePrefix(ctx context.Context, prefix string) error
}

type ReadCache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	StoreJSON(ctx context.Context, key string, value any) error
	Flush(ctx context.Context) error
}

type Service struct {
	guard   *auth.Guard
	repo    Repository
	images  reconcile.Collection
	details reconcile.Collection
	assets  AssetStore
	engine  Reconciler
	janitor Janitor   // optional
	cache   ReadCache // optional
	log     *zap.SugaredLogger
	now     func() time.Time
}

func New(
	guard *auth.Guard,
	repo Repository,
	images, details reconcile.Collection,
	assets AssetStore,
	engine Reconciler,
	janitor Janitor,
	cache ReadCache,
	log *zap.SugaredLogger,
) *Service {
	return &Service{
		guard:   guard,
		repo:    repo,
		images:  images,
		details: details,
		assets:  assets,
		engine:  engine,
		janitor: janitor,
		cache:   cache,
		log:     log,
		now:     time.Now,
	}
}

// FileUpload is one accepted multipart file, already size- and MIME-checked
// by the transport layer.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type DetailInput struct {
	Title       string
	Description string
	Image       *FileUpload
	// ReplaceID names an existing detail whose stored image this upload
	// supersedes.
	ReplaceID int64
}

type ProductFields struct {
	Title       string
	Price       float64
	WorkingTime int32
	Difficulty  *int16
	Width       *float64
	Height      *float64
	Depth       *float64
	Slug        string // derived from Title when empty
}

type CreateProductInput struct {
	ProductFields
	Images  []FileUpload
	Details []DetailInput
}

type UpdateProductInput struct {
	ID int64
	ProductFields
	KeptImageIDs  []int64
	NewImages     []FileUpload
	KeptDetailIDs []int64
	NewDetails    []DetailInput
}

type MutationResult struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (MutationResult, error) {
	p, err := s.guard.RequireOperator(ctx)
	if err != nil {
		return MutationResult{}, err
	}

	if err := validateFields(in.ProductFields); err != nil {
		return MutationResult{}, err
	}
	if len(in.Images) == 0 {
		return MutationResult{}, apperr.Invalid("images", "at least one image is required")
	}
	if err := checkUploads(in.Images, in.Details); err != nil {
		return MutationResult{}, err
	}

	slug, err := s.resolveSlug(ctx, in.ProductFields, 0)
	if err != nil {
		return MutationResult{}, err
	}

	item := entities.CatalogItem{
		Title:       in.Title,
		Slug:        slug,
		Price:       in.Price,
		Difficulty:  in.Difficulty,
		WorkingTime: in.WorkingTime,
		Width:       in.Width,
		Height:      in.Height,
		Depth:       in.Depth,
		OwnerID:     p.ID,
	}
	id, err := s.repo.InsertItem(ctx, &item)
	if err != nil {
		return MutationResult{}, storeErr("insert product", err)
	}

	if err := s.engine.Sync(ctx, s.images, id, nil, imagePayloads(in.Images)); err != nil {
		s.rollbackCreate(ctx, id)
		return MutationResult{}, err
	}
	if len(in.Details) > 0 {
		if err := s.engine.Sync(ctx, s.details, id, nil, detailPayloads(in.Details)); err != nil {
			s.rollbackCreate(ctx, id)
			return MutationResult{}, err
		}
	}

	s.flushCache(ctx)
	return MutationResult{ID: id, Slug: slug}, nil
}

func (s *Service) UpdateProduct(ctx context.Context, in UpdateProductInput) (MutationResult, error) {
	p, err := s.guard.RequireOperator(ctx)
	if err != nil {
		return MutationResult{}, err
	}

	item, err := s.repo.GetItem(ctx, in.ID)
	if err != nil {
		return MutationResult{}, storeErr("load product", err)
	}
	if err := auth.RequireOwner(p, item.OwnerID); err != nil {
		return MutationResult{}, err
	}

	if err := validateFields(in.ProductFields); err != nil {
		return MutationResult{}, err
	}
	// The final image set must not be empty; reject before any store call.
	if len(in.KeptImageIDs)+len(in.NewImages) == 0 {
		return MutationResult{}, apperr.Invalid("images", "an item needs at least one image")
	}
	if err := checkUploads(in.NewImages, in.NewDetails); err != nil {
		return MutationResult{}, err
	}

	slug := item.Slug
	if newSlug := in.Slug; newSlug != "" || in.Title != item.Title {
		if newSlug == "" {
			newSlug = Slugify(in.Title)
		}
		if newSlug == "" {
			return MutationResult{}, apperr.Invalid("slug", "title yields no usable slug; provide one explicitly")
		}
		// Uniqueness is re-checked only when the slug actually changes.
		if newSlug != item.Slug {
			taken, err := s.repo.SlugExists(ctx, newSlug, in.ID)
			if err != nil {
				return MutationResult{}, storeErr("check slug", err)
			}
			if taken {
				return MutationResult{}, apperr.Conflict("slug already in use: " + newSlug)
			}
		}
		slug = newSlug
	}

	if err := s.engine.Sync(ctx, s.images, in.ID, in.KeptImageIDs, imagePayloads(in.NewImages)); err != nil {
		return MutationResult{}, err
	}
	if err := s.engine.Sync(ctx, s.details, in.ID, in.KeptDetailIDs, detailPayloads(in.NewDetails)); err != nil {
		return MutationResult{}, err
	}

	// Scalars go last so a reconciliation failure leaves them untouched.
	item.Title = in.Title
	item.Slug = slug
	item.Price = in.Price
	item.Difficulty = in.Difficulty
	item.WorkingTime = in.WorkingTime
	item.Width = in.Width
	item.Height = in.Height
	item.Depth = in.Depth
	if err := s.repo.UpdateItemScalars(ctx, &item); err != nil {
		return MutationResult{}, storeErr("update product", err)
	}

	s.flushCache(ctx)
	return MutationResult{ID: in.ID, Slug: slug}, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.guard.RequireOperator(ctx)
	if err != nil {
		return err
	}

	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return storeErr("load product", err)
	}
	if err := auth.RequireOwner(p, item.OwnerID); err != nil {
		return err
	}

	// Best-effort asset purge; the relational delete is the source of truth.
	prefix := fmt.Sprintf("%d/", id)
	if err := s.assets.RemovePrefix(ctx, prefix); err != nil {
		s.log.Warnw("asset purge failed on product delete", "item", id, "err", err)
	}
	if s.janitor != nil {
		if err := s.janitor.EnqueuePrefix(ctx, prefix); err != nil {
			s.log.Warnw("janitor enqueue failed on product delete", "item", id, "err", err)
		}
	}

	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return storeErr("delete product", err)
	}

	s.flushCache(ctx)
	return nil
}

func (s *Service) ToggleSoldOut(ctx context.Context, id int64) (bool, error) {
	p, err := s.guard.RequireOperator(ctx)
	if err != nil {
		return false, err
	}

	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return false, storeErr("load product", err)
	}
	if err := auth.RequireOwner(p, item.OwnerID); err != nil {
		return false, err
	}

	soldOut, err := s.repo.ToggleSoldOut(ctx, id)
	if err != nil {
		return false, storeErr("toggle sold_out", err)
	}

	s.flushCache(ctx)
	return soldOut, nil
}

// rollbackCreate compensates the otherwise-orphaned parent row after a
// child reconciliation failed. Already-uploaded assets of earlier successful
// reconciliations go to the janitor.
func (s *Service) rollbackCreate(ctx context.Context, id int64) {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		s.log.Errorw("failed to roll back created product", "item", id, "err", err)
	}
	if s.janitor != nil {
		if err := s.janitor.EnqueuePrefix(ctx, fmt.Sprintf("%d/", id)); err != nil {
			s.log.Warnw("janitor enqueue failed on create rollback", "item", id, "err", err)
		}
	}
}

func (s *Service) flushCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Flush(ctx); err != nil {
		s.log.Warnw("failed to flush read cache", "err", err)
	}
}

func (s *Service) resolveSlug(ctx context.Context, f ProductFields, excludeID int64) (string, error) {
	slug := f.Slug
	if slug == "" {
		slug = Slugify(f.Title)
	}
	if slug == "" {
		return "", apperr.Invalid("slug", "title yields no usable slug; provide one explicitly")
	}
	taken, err := s.repo.SlugExists(ctx, slug, excludeID)
	if err != nil {
		return "", storeErr("check slug", err)
	}
	if taken {
		return "", apperr.Conflict("slug already in use: " + slug)
	}
	return slug, nil
}

func validateFields(f ProductFields) error {
	fields := map[string]string{}
	if f.Title == "" {
		fields["title"] = "is required"
	}
	if f.Price <= 0 {
		fields["price"] = "must be positive"
	}
	if f.WorkingTime <= 0 {
		fields["working_time"] = "must be a positive number of minutes"
	}
	if f.Difficulty != nil && (*f.Difficulty < 1 || *f.Difficulty > 5) {
		fields["difficulty"] = "must be between 1 and 5"
	}
	for name, v := range map[string]*float64{"width": f.Width, "height": f.Height, "depth": f.Depth} {
		if v != nil && *v < 0 {
			fields[name] = "must not be negative"
		}
	}
	if len(fields) > 0 {
		return apperr.InvalidFields(fields)
	}
	return nil
}

// checkUploads rejects payloads that do not decode as the image format they
// claim, before anything touches a store.
func checkUploads(images []FileUpload, details []DetailInput) error {
	for _, f := range images {
		if err := checkImage(f); err != nil {
			return err
		}
	}
	for _, d := range details {
		if d.Title == "" {
			return apperr.Invalid("details", "each detail section needs a title")
		}
		if d.Image != nil {
			if err := checkImage(*d.Image); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkImage(f FileUpload) error {
	ext, ok := extFor(f.ContentType)
	if !ok {
		// MIME sniffing upstream guarantees image/*; formats we cannot
		// decode are stored as-is.
		return nil
	}
	imgp := &processor.ImageProcessor{}
	if err := imgp.Load(bytes.NewReader(f.Data), ext); err != nil {
		return apperr.Invalid("images", fmt.Sprintf("%s is not a valid %s file", f.Name, f.ContentType))
	}
	if w, h := imgp.GetBounds(); w == 0 || h == 0 {
		return apperr.Invalid("images", f.Name+" has empty dimensions")
	}
	return nil
}

func extFor(contentType string) (string, bool) {
	switch contentType {
	case "image/png":
		return ".png", true
	case "image/jpeg":
		return ".jpg", true
	case "image/webp":
		return ".webp", true
	case "image/gif":
		return ".gif", true
	default:
		return "", false
	}
}

func imagePayloads(files []FileUpload) []reconcile.NewPayload {
	out := make([]reconcile.NewPayload, len(files))
	for i, f := range files {
		out[i] = reconcile.NewPayload{Name: f.Name, ContentType: f.ContentType, Data: f.Data}
	}
	return out
}

func detailPayloads(details []DetailInput) []reconcile.NewPayload {
	out := make([]reconcile.NewPayload, len(details))
	for i, d := range details {
		p := reconcile.NewPayload{Title: d.Title, Description: d.Description, ReplaceID: d.ReplaceID}
		if d.Image != nil {
			p.Name = d.Image.Name
			p.ContentType = d.Image.ContentType
			p.Data = d.Image.Data
		}
		out[i] = p
	}
	return out
}

func storeErr(op string, err error) error {
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	return apperr.Store(op, err)
}
