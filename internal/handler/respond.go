package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/persist"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/otp"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Wrap(errBadRequest, "request body is empty")
		}
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type message struct {
	Message string `json:"message"`
}

// errorKind maps a domain error to its HTTP representation. When detail is
// set the full wrapped message is shown, otherwise only the target's.
type errorKind struct {
	target error
	status int
	kind   string
	detail bool
}

var errorKinds = []errorKind{
	{auth.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", false},
	{auth.ErrForbidden, http.StatusForbidden, "forbidden", false},

	{pricing.ErrEmptyCart, http.StatusBadRequest, "empty_cart", false},
	{address.ErrNoShippingAddress, http.StatusBadRequest, "no_shipping_address", false},
	{order.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method", true},
	{coupon.ErrInvalidCoupon, http.StatusBadRequest, "invalid_coupon", false},
	{coupon.ErrCouponExpired, http.StatusBadRequest, "coupon_expired", false},
	{coupon.ErrUsageLimitExceeded, http.StatusBadRequest, "usage_limit_exceeded", false},
	{coupon.ErrBelowMinimumOrder, http.StatusBadRequest, "below_minimum_order", false},
	{order.ErrNotCancellable, http.StatusBadRequest, "order_not_cancellable", false},
	{order.ErrInvalidTransition, http.StatusBadRequest, "invalid_transition", true},
	{order.ErrInvalidStatus, http.StatusBadRequest, "invalid_status", true},
	{order.ErrInvalidFilter, http.StatusBadRequest, "invalid_filter", true},
	{otp.ErrInvalidCode, http.StatusBadRequest, "invalid_otp", false},

	{errBadRequest, http.StatusBadRequest, "validation", true},
	{address.ErrInvalid, http.StatusBadRequest, "validation", true},
	{catalog.ErrInvalid, http.StatusBadRequest, "validation", true},
	{coupon.ErrInvalidDefinition, http.StatusBadRequest, "validation", true},
	{user.ErrInvalidProfile, http.StatusBadRequest, "validation", true},
	{cart.ErrInvalidQuantity, http.StatusBadRequest, "validation", false},
	{cart.ErrProductRequired, http.StatusBadRequest, "validation", false},
	{otp.ErrPhoneRequired, http.StatusBadRequest, "validation", false},

	{order.ErrNotFound, http.StatusNotFound, "not_found", false},
	{address.ErrNotFound, http.StatusNotFound, "not_found", false},
	{catalog.ErrNotFound, http.StatusNotFound, "not_found", false},
	{coupon.ErrNotFound, http.StatusNotFound, "not_found", false},
	{user.ErrNotFound, http.StatusNotFound, "not_found", false},
	{cart.ErrItemNotFound, http.StatusNotFound, "not_found", false},

	{cart.ErrProductNotFound, http.StatusUnprocessableEntity, "product_not_found", false},

	{catalog.ErrDuplicateSlug, http.StatusConflict, "conflict", false},
	{coupon.ErrDuplicateCode, http.StatusConflict, "conflict", false},
	{user.ErrEmailTaken, http.StatusConflict, "conflict", false},

	{order.ErrOrderIDExhausted, http.StatusServiceUnavailable, "order_id_exhausted", false},
}

// writeError maps err to the error envelope. Unknown and storage errors are
// logged; their text is not shown to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pnf *order.ProductNotFoundError
	if errors.As(err, &pnf) {
		httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, "product_not_found", pnf.Error())
		return
	}
	var minErr *coupon.MinimumOrderError
	if errors.As(err, &minErr) {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "below_minimum_order", minErr.Error())
		return
	}

	for _, k := range errorKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		msg := k.target.Error()
		if k.detail {
			msg = err.Error()
		}
		httpmiddleware.WriteError(w, k.status, k.kind, msg)
		return
	}

	lg := zctx.From(r.Context())
	if persist.Is(err) {
		lg.Error("Persistence failure", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusServiceUnavailable, "persistence_failure", "storage is unavailable")
		return
	}
	lg.Error("Unhandled error", zap.Error(err))
	httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal", "internal server error")
}
