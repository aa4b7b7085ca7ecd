package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

type applyCouponRequest struct {
	Code        string          `json:"code"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

type applyCouponResponse struct {
	CouponID    string  `json:"couponId"`
	Code        string  `json:"code"`
	Discount    float64 `json:"discount"`
	FinalAmount float64 `json:"finalAmount"`
}

// applyCoupon previews a discount. It never redeems the coupon.
func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	code := coupon.NormalizeCode(req.Code)
	if code == "" {
		writeError(w, r, coupon.ErrInvalidCoupon)
		return
	}
	if req.OrderAmount.IsNegative() {
		writeError(w, r, errors.Wrap(errBadRequest, "orderAmount cannot be negative"))
		return
	}
	d, err := h.Evaluator.Evaluate(r.Context(), code, req.OrderAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applyCouponResponse{
		CouponID:    d.CouponID,
		Code:        d.Code,
		Discount:    money(d.Amount),
		FinalAmount: money(d.FinalAmount),
	})
}

func (h *Handler) activeCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.Coupons.ListActive(r.Context(), h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoupons(list))
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.Coupons.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoupons(list))
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.Coupons.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoupon(c))
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var body couponBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c := &coupon.Coupon{Active: true}
	body.patch().Apply(c)
	if err := c.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Coupons.Create(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCoupon(c))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body couponBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Coupons.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	body.patch().Apply(c)
	if err := c.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Coupons.Update(ctx, c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoupon(c))
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.Coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Coupon deleted"})
}
