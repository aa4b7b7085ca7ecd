package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	AddressID     string `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
	CouponCode    string `json:"couponCode"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	o, err := h.Orders.Checkout(r.Context(), actorOf(r).UserID, order.CheckoutRequest{
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(o))
}

func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) {
	t, err := h.Orders.Track(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTracking(t))
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListMine(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrders(list))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := order.ParseFilter(q.Get("search"), q.Get("date"), q.Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.Orders.List(r.Context(), actorOf(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrders(list))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	o, err := h.Orders.Cancel(r.Context(), actorOf(r), chi.URLParam(r, "id"), strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

type updateOrderRequest struct {
	IsPaid      *bool   `json:"isPaid"`
	IsDelivered *bool   `json:"isDelivered"`
	Status      *string `json:"status"`
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u := order.Update{IsPaid: req.IsPaid, IsDelivered: req.IsDelivered}
	if req.Status != nil {
		st, err := order.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, r, err)
			return
		}
		u.Status = &st
	}
	o, err := h.Orders.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *Handler) deleteMyOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.DeleteMine(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Order removed from history"})
}

type clearedResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deletedCount"`
}

func (h *Handler) clearMyOrders(w http.ResponseWriter, r *http.Request) {
	n, err := h.Orders.ClearHistory(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clearedResponse{Message: "Order history cleared", Deleted: n})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Order deleted"})
}

// orderEvents upgrades to a websocket streaming every order event.
func (h *Handler) orderEvents(w http.ResponseWriter, r *http.Request) {
	h.streamEvents(w, r, "")
}

// myOrderEvents streams events for the caller's own orders only.
func (h *Handler) myOrderEvents(w http.ResponseWriter, r *http.Request) {
	h.streamEvents(w, r, actorOf(r).UserID)
}

func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.Events.Serve(w, r, userID); err != nil {
		zctx.From(r.Context()).Warn("Order event stream failed", zap.Error(err))
	}
}

type statsResponse struct {
	TotalUsers   int     `json:"totalUsers"`
	TotalOrders  int     `json:"totalOrders"`
	TotalRevenue float64 `json:"totalRevenue"`
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.Orders.Stats(ctx, actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	users, err := h.Users.Count(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalUsers:   users,
		TotalOrders:  s.TotalOrders,
		TotalRevenue: money(s.Revenue),
	})
}
