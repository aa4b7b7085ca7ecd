package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"qty"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (req cartItemRequest) key() cart.Key {
	return cart.Key{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
}

type cartLineResponse struct {
	// Product is nil when the product was removed from the catalog.
	Product   *productResponse `json:"product"`
	ProductID string           `json:"productId"`
	Quantity  int              `json:"qty"`
	Size      string           `json:"size,omitempty"`
	Color     string           `json:"color,omitempty"`
}

type cartResponse struct {
	Items     []cartLineResponse `json:"items"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

// cartView joins the cart lines with current product details.
func (h *Handler) cartView(ctx context.Context, c *cart.Cart) (cartResponse, error) {
	out := cartResponse{Items: make([]cartLineResponse, 0, len(c.Items))}
	if !c.UpdatedAt.IsZero() {
		out.UpdatedAt = &c.UpdatedAt
	}
	if c.Empty() {
		return out, nil
	}

	products, err := h.productsByID(ctx, c.ProductIDs())
	if err != nil {
		return cartResponse{}, err
	}
	for _, it := range c.Items {
		line := cartLineResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
		}
		if p, ok := products[it.ProductID]; ok {
			v := toProduct(p)
			line.Product = &v
		}
		out.Items = append(out.Items, line)
	}
	return out, nil
}

func (h *Handler) productsByID(ctx context.Context, ids []string) (map[string]*catalog.Product, error) {
	list, err := h.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	byID := make(map[string]*catalog.Product, len(list))
	for i := range list {
		byID[list[i].ID] = &list[i]
	}
	return byID, nil
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, c *cart.Cart) {
	view, err := h.cartView(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Get(r.Context(), actorOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, r, c)
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c, err := h.Carts.Add(r.Context(), actorOf(r).UserID, cart.Item{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, r, c)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Carts.Update(r.Context(), actorOf(r).UserID, req.key(), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, r, c)
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Carts.Remove(r.Context(), actorOf(r).UserID, req.key())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, r, c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.Clear(r.Context(), actorOf(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Items: []cartLineResponse{}})
}
