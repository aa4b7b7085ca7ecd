package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/catalog"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	flag := func(name string) bool {
		v, _ := strconv.ParseBool(q.Get(name))
		return v
	}
	list, err := h.Products.List(r.Context(), catalog.ProductFilter{
		CategorySlug: q.Get("category"),
		SubCategory:  q.Get("subCategory"),
		NewArrival:   flag("new"),
		BestSeller:   flag("bestseller"),
		Trending:     flag("trending"),
		Search:       q.Get("search"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProducts(list))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "")
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, chi.URLParam(r, "id"))
}

// saveProduct creates a product when id is empty and replaces it otherwise.
func (h *Handler) saveProduct(w http.ResponseWriter, r *http.Request, id string) {
	var body productBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	p := body.product(id)
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	status, save := http.StatusOK, h.Products.Update
	if id == "" {
		status, save = http.StatusCreated, h.Products.Create
	}
	if err := save(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, toProduct(p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Product deleted"})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.Categories.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, len(list))
	for i := range list {
		out[i] = toCategory(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c := &catalog.Category{}
	body.patch().Apply(c)
	if err := c.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Categories.Create(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategory(c))
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body categoryBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Categories.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	body.patch().Apply(c)
	if err := c.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Categories.Update(ctx, c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategory(c))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Categories.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Category deleted"})
}

func bannerKind(w http.ResponseWriter, r *http.Request) (catalog.BannerKind, bool) {
	kind, err := catalog.ParseBannerKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return "", false
	}
	return kind, true
}

// listBanners returns active banners; admins may pass all=true to include
// inactive ones.
func (h *Handler) listBanners(w http.ResponseWriter, r *http.Request) {
	kind, ok := bannerKind(w, r)
	if !ok {
		return
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	activeOnly := !(all && actorOf(r).Admin)

	list, err := h.Banners.List(r.Context(), kind, activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]bannerResponse, len(list))
	for i := range list {
		out[i] = toBanner(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createBanner(w http.ResponseWriter, r *http.Request) {
	h.saveBanner(w, r, "")
}

func (h *Handler) updateBanner(w http.ResponseWriter, r *http.Request) {
	h.saveBanner(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveBanner(w http.ResponseWriter, r *http.Request, id string) {
	kind, ok := bannerKind(w, r)
	if !ok {
		return
	}
	var body bannerBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	b := body.banner(kind, id)
	if err := b.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	status, save := http.StatusOK, h.Banners.Update
	if id == "" {
		status, save = http.StatusCreated, h.Banners.Create
	}
	if err := save(r.Context(), b); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, toBanner(b))
}

func (h *Handler) toggleBanner(w http.ResponseWriter, r *http.Request) {
	kind, ok := bannerKind(w, r)
	if !ok {
		return
	}
	b, err := h.Banners.Toggle(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBanner(b))
}

func (h *Handler) deleteBanner(w http.ResponseWriter, r *http.Request) {
	kind, ok := bannerKind(w, r)
	if !ok {
		return
	}
	if err := h.Banners.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Banner deleted"})
}
