package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
	"github.com/Yoonyonggeun/mostarle-kr/internal/catalog"
	"github.com/Yoonyonggeun/mostarle-kr/internal/config"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
)

type UseCase interface {
	CreateProduct(ctx context.Context, in catalog.CreateProductInput) (catalog.MutationResult, error)
	UpdateProduct(ctx context.Context, in catalog.UpdateProductInput) (catalog.MutationResult, error)
	DeleteProduct(ctx context.Context, id int64) error
	ToggleSoldOut(ctx context.Context, id int64) (bool, error)

	CreateBanner(ctx context.Context, in catalog.CreateBannerInput) (catalog.BannerResult, error)
	UpdateBanner(ctx context.Context, in catalog.UpdateBannerInput) (catalog.BannerResult, error)
	DeleteBanner(ctx context.Context, id int64) error

	GetProduct(ctx context.Context, id int64) (entities.CatalogItem, error)
	GetProductBySlug(ctx context.Context, slug string) (entities.CatalogItem, error)
	ListProducts(ctx context.Context) ([]entities.CatalogItem, error)
	ListBanners(ctx context.Context) ([]entities.Banner, error)
}

type Handler struct {
	useCase   UseCase
	cfg       *config.Config
	validator *validator.Validate
}

func New(useCase UseCase, cfg *config.Config) *Handler {
	return &Handler{
		useCase:   useCase,
		cfg:       cfg,
		validator: validator.New(),
	}
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	params, fields, err := h.productParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.validator.Struct(params); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Error: "invalid input", Fields: validationErrorsToMap(err)})
		return
	}

	images, err := h.readUploads(r.MultipartForm.File["images"])
	if err != nil {
		writeError(w, err)
		return
	}
	details, err := h.readDetails(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.useCase.CreateProduct(r.Context(), catalog.CreateProductInput{
		ProductFields: fields,
		Images:        images,
		Details:       details,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !h.parseForm(w, r) {
		return
	}

	params, fields, err := h.productParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.validator.Struct(params); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Error: "invalid input", Fields: validationErrorsToMap(err)})
		return
	}

	keptImages, err := parseIDList(r.Form["existing_image_ids"], "existing_image_ids")
	if err != nil {
		writeError(w, err)
		return
	}
	keptDetails, err := parseIDList(r.Form["existing_detail_ids"], "existing_detail_ids")
	if err != nil {
		writeError(w, err)
		return
	}
	images, err := h.readUploads(r.MultipartForm.File["images"])
	if err != nil {
		writeError(w, err)
		return
	}
	details, err := h.readDetails(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.useCase.UpdateProduct(r.Context(), catalog.UpdateProductInput{
		ID:            id,
		ProductFields: fields,
		KeptImageIDs:  keptImages,
		NewImages:     images,
		KeptDetailIDs: keptDetails,
		NewDetails:    details,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.useCase.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleSoldOut(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	soldOut, err := h.useCase.ToggleSoldOut(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sold_out": soldOut})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	item, err := h.useCase.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	item, err := h.useCase.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.useCase.ListProducts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// parseForm bounds the body and parses the multipart payload, reporting
// errors itself. Returns false when the request is already answered.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxRequestBodyMB<<20)

	if err := r.ParseMultipartForm(h.cfg.Upload.MaxMultipartMemoryMB << 20); err != nil {
		writeMultipartError(w, err)
		return false
	}
	return true
}

func (h *Handler) productParams(r *http.Request) (ProductParams, catalog.ProductFields, error) {
	var p ProductParams
	p.Title = strings.TrimSpace(r.Form.Get("title"))
	p.Slug = strings.TrimSpace(r.Form.Get("slug"))

	price, err := parseFloatPtr(r.Form.Get("price"), "price")
	if err != nil {
		return p, catalog.ProductFields{}, err
	}
	if price != nil {
		p.Price = *price
	}

	wt, err := parseIntPtr(r.Form.Get("working_time"), "working_time")
	if err != nil {
		return p, catalog.ProductFields{}, err
	}
	if wt != nil {
		p.WorkingTime = int32(*wt)
	}

	if p.Difficulty, err = parseInt16Ptr(r.Form.Get("difficulty"), "difficulty"); err != nil {
		return p, catalog.ProductFields{}, err
	}
	if p.Width, err = parseFloatPtr(r.Form.Get("width"), "width"); err != nil {
		return p, catalog.ProductFields{}, err
	}
	if p.Height, err = parseFloatPtr(r.Form.Get("height"), "height"); err != nil {
		return p, catalog.ProductFields{}, err
	}
	if p.Depth, err = parseFloatPtr(r.Form.Get("depth"), "depth"); err != nil {
		return p, catalog.ProductFields{}, err
	}

	return p, catalog.ProductFields{
		Title:       p.Title,
		Price:       p.Price,
		WorkingTime: p.WorkingTime,
		Difficulty:  p.Difficulty,
		Width:       p.Width,
		Height:      p.Height,
		Depth:       p.Depth,
		Slug:        p.Slug,
	}, nil
}

const maxDetails = 50

// readDetails walks the indexed detail form fields:
// details[i][title], details[i][description], details[i][image],
// details[i][replace_id].
func (h *Handler) readDetails(r *http.Request) ([]catalog.DetailInput, error) {
	var out []catalog.DetailInput

	for i := 0; i < maxDetails; i++ {
		titleKey := fmt.Sprintf("details[%d][title]", i)
		imageKey := fmt.Sprintf("details[%d][image]", i)

		titles, hasTitle := r.MultipartForm.Value[titleKey]
		files := r.MultipartForm.File[imageKey]
		if !hasTitle && len(files) == 0 {
			break
		}

		d := catalog.DetailInput{
			Description: r.Form.Get(fmt.Sprintf("details[%d][description]", i)),
		}
		if hasTitle && len(titles) > 0 {
			d.Title = strings.TrimSpace(titles[0])
		}
		if len(files) > 0 {
			f, err := h.readUpload(files[0])
			if err != nil {
				return nil, err
			}
			d.Image = &f
		}
		if raw := r.Form.Get(fmt.Sprintf("details[%d][replace_id]", i)); raw != "" {
			id, err := parseID(raw)
			if err != nil {
				return nil, apperr.Invalid("details", "replace_id must be a positive integer")
			}
			d.ReplaceID = id
		}
		out = append(out, d)
	}
	return out, nil
}

func (h *Handler) readUploads(fhs []*multipart.FileHeader) ([]catalog.FileUpload, error) {
	var out []catalog.FileUpload
	for _, fh := range fhs {
		f, err := h.readUpload(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// readUpload enforces the per-file constraints before anything reaches a
// store: size cap and a sniffed image/* MIME type.
func (h *Handler) readUpload(fh *multipart.FileHeader) (catalog.FileUpload, error) {
	maxBytes := h.cfg.Upload.MaxFileSizeMB << 20
	if fh.Size > maxBytes {
		return catalog.FileUpload{}, apperr.Invalid("images",
			fmt.Sprintf("%s exceeds the %d MiB limit", fh.Filename, h.cfg.Upload.MaxFileSizeMB))
	}

	file, err := fh.Open()
	if err != nil {
		return catalog.FileUpload{}, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer file.Close()

	mime, err := mimetype.DetectReader(file)
	if err != nil {
		return catalog.FileUpload{}, fmt.Errorf("failed to sniff %s: %w", fh.Filename, err)
	}
	if !strings.HasPrefix(mime.String(), "image/") {
		return catalog.FileUpload{}, apperr.Invalid("images",
			fmt.Sprintf("%s is %s, only images are accepted", fh.Filename, mime.String()))
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return catalog.FileUpload{}, fmt.Errorf("failed to rewind %s: %w", fh.Filename, err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return catalog.FileUpload{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}

	return catalog.FileUpload{
		Name:        fh.Filename,
		ContentType: mime.String(),
		Data:        data,
	}, nil
}
