package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Yoonyonggeun/mostarle-kr/internal/catalog"
)

func (h *Handler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	params, err := h.bannerParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.validator.Struct(params); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Error: "invalid input", Fields: validationErrorsToMap(err)})
		return
	}

	mobile, desktop, err := h.bannerSlots(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.useCase.CreateBanner(r.Context(), catalog.CreateBannerInput{
		LinkURL:      params.LinkURL,
		DisplayOrder: params.DisplayOrder,
		IsActive:     params.IsActive,
		Mobile:       mobile,
		Desktop:      desktop,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !h.parseForm(w, r) {
		return
	}

	params, err := h.bannerParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.validator.Struct(params); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Error: "invalid input", Fields: validationErrorsToMap(err)})
		return
	}

	mobile, desktop, err := h.bannerSlots(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.useCase.UpdateBanner(r.Context(), catalog.UpdateBannerInput{
		ID:           id,
		LinkURL:      params.LinkURL,
		DisplayOrder: params.DisplayOrder,
		IsActive:     params.IsActive,
		Mobile:       mobile,
		Desktop:      desktop,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.useCase.DeleteBanner(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.useCase.ListBanners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, banners)
}

func (h *Handler) bannerParams(r *http.Request) (BannerParams, error) {
	var p BannerParams

	if raw := strings.TrimSpace(r.Form.Get("link_url")); raw != "" {
		p.LinkURL = &raw
	}
	order, err := parseIntPtr(r.Form.Get("display_order"), "display_order")
	if err != nil {
		return p, err
	}
	p.DisplayOrder = order

	if p.IsActive, err = parseBoolPtr(r.Form.Get("is_active"), "is_active"); err != nil {
		return p, err
	}
	return p, nil
}

func (h *Handler) bannerSlots(r *http.Request) (mobile, desktop *catalog.FileUpload, err error) {
	if fhs := r.MultipartForm.File["image_mobile"]; len(fhs) > 0 {
		f, err := h.readUpload(fhs[0])
		if err != nil {
			return nil, nil, err
		}
		mobile = &f
	}
	if fhs := r.MultipartForm.File["image_desktop"]; len(fhs) > 0 {
		f, err := h.readUpload(fhs[0])
		if err != nil {
			return nil, nil, err
		}
		desktop = &f
	}
	return mobile, desktop, nil
}
