package handlers

import (
	"net/http"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/http/response"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) ListBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.Banners.List(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, banners)
}

func (h *Handlers) ActiveBanner(w http.ResponseWriter, r *http.Request) {
	b, err := h.Banners.Active(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, b)
}

func (h *Handlers) CreateBanner(w http.ResponseWriter, r *http.Request) {
	var in domain.BannerReq
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Banners.Create(r.Context(), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, res)
}

func (h *Handlers) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	var in domain.BannerPatch
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Banners.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

func (h *Handlers) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	res, err := h.Banners.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

func (h *Handlers) ListBlogs(w http.ResponseWriter, r *http.Request) {
	blogs, err := h.Blogs.List(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, blogs)
}

func (h *Handlers) GetBlog(w http.ResponseWriter, r *http.Request) {
	b, err := h.Blogs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, b)
}

func (h *Handlers) CreateBlog(w http.ResponseWriter, r *http.Request) {
	var in domain.BlogReq
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Blogs.Create(r.Context(), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, res)
}

func (h *Handlers) DeleteBlog(w http.ResponseWriter, r *http.Request) {
	res, err := h.Blogs.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}
