package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
)

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), actorOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req profileRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.Get(ctx, actorOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.patch().Apply(u); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.Update(ctx, u); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]userResponse, len(list))
	for i := range list {
		out[i] = toUser(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

type setAdminRequest struct {
	IsAdmin *bool `json:"isAdmin"`
}

func (h *Handler) setUserAdmin(w http.ResponseWriter, r *http.Request) {
	var req setAdminRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.IsAdmin == nil {
		writeError(w, r, errors.Wrap(errBadRequest, "isAdmin is required"))
		return
	}
	u, err := h.Users.SetAdmin(r.Context(), chi.URLParam(r, "id"), *req.IsAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Admin flag changed",
		zap.String("user_id", u.ID),
		zap.Bool("is_admin", u.IsAdmin),
	)
	writeJSON(w, http.StatusOK, toUser(u))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if actorOf(r).UserID == id {
		writeError(w, r, errors.Wrap(auth.ErrForbidden, "cannot delete own account"))
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "User deleted"})
}

func (h *Handler) wishlistView(ctx context.Context, ids []string) ([]productResponse, error) {
	if len(ids) == 0 {
		return []productResponse{}, nil
	}
	byID, err := h.productsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]productResponse, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, toProduct(p))
		}
	}
	return out, nil
}

func (h *Handler) writeWishlist(w http.ResponseWriter, r *http.Request, ids []string, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.wishlistView(r.Context(), ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Users.Wishlist(r.Context(), actorOf(r).UserID)
	h.writeWishlist(w, r, ids, err)
}

type wishlistRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req wishlistRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.Products.Exists(ctx, req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, catalog.ErrNotFound)
		return
	}
	ids, err := h.Users.AddToWishlist(ctx, actorOf(r).UserID, req.ProductID)
	h.writeWishlist(w, r, ids, err)
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Users.RemoveFromWishlist(r.Context(), actorOf(r).UserID, chi.URLParam(r, "productId"))
	h.writeWishlist(w, r, ids, err)
}
