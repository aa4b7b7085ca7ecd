package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/persist"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/notify"
	"github.com/xenking/storefront/internal/otp"
	"github.com/xenking/storefront/internal/security"
)

const (
	testPepper = "pepper"
	testAPIKey = "admin-key"
)

type fixture struct {
	t      *testing.T
	st     *store
	h      *Handler
	router http.Handler
	tokens *security.Tokens
	hub    *notify.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := newStore()
	st.products["p1"] = catalog.Product{ID: "p1", Name: "Linen Shirt", Slug: "linen-shirt", Price: decimal.NewFromInt(500), Stock: 10}
	st.products["p2"] = catalog.Product{ID: "p2", Name: "Socks", Slug: "socks", Price: decimal.NewFromInt(100), Stock: 10}
	st.users["u1"] = &user.User{ID: "u1", Name: "Asha", Email: "asha@example.com"}
	st.users["u2"] = &user.User{ID: "u2", Name: "Ravi"}
	st.users["admin"] = &user.User{ID: "admin", Name: "Admin", IsAdmin: true}
	keyHash := security.HashAPIKey([]byte(testPepper), testAPIKey)
	st.keys[keyHash] = &auth.APIKeyInfo{
		ID:      "k1",
		KeyHash: keyHash,
		Name:    "ops",
		Scopes:  []string{auth.ScopeAdmin},
	}

	evaluator := evaluatorFunc(func(_ context.Context, code string, amount decimal.Decimal) (coupon.Discount, error) {
		switch code {
		case "SAVE10":
			off := amount.Div(decimal.NewFromInt(10)).Round(2)
			return coupon.Discount{CouponID: "c1", Code: code, Amount: off, FinalAmount: amount.Sub(off)}, nil
		case "OLD":
			return coupon.Discount{}, coupon.ErrCouponExpired
		default:
			return coupon.Discount{}, coupon.ErrInvalidCoupon
		}
	})

	hub := notify.NewHub(zap.NewNop(), nil)
	t.Cleanup(hub.Close)

	orders, err := order.NewService(fakeOrders{st}, fakeAddresses{st}, evaluator, order.Options{Notifier: hub})
	require.NoError(t, err)

	tokens := security.NewTokens([]byte("test-secret"), time.Hour)
	h := New(Config{TokenTTL: time.Hour}, Deps{
		Orders:    orders,
		Carts:     cart.NewService(fakeCarts{st}, fakeProducts{st}),
		Evaluator: evaluator,
		Coupons:   fakeCoupons{st},
		Addresses: fakeAddresses{st},
		Users:     fakeUsers{st},
		Products:  fakeProducts{st},
		Banners:   fakeBanners{st},
		OTP:       otp.NewService(fakeCodes{st}, otp.LogSender{}, otp.Config{Expose: true}),
		Auth: security.NewAuthenticator(
			tokens,
			security.NewAPIKeys(fakeKeys{st}, []byte(testPepper)),
			fakeUsers{st},
		),
		Events: hub,
	})

	return &fixture{t: t, st: st, h: h, router: h.Router(), tokens: tokens, hub: hub}
}

type reqOption func(r *http.Request)

func (f *fixture) as(userID string) reqOption {
	tok, _, err := f.tokens.Issue(userID)
	require.NoError(f.t, err)
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	}
}

func withAPIKey(key string) reqOption {
	return func(r *http.Request) {
		r.Header.Set(apiKeyHeader, key)
	}
}

func (f *fixture) do(method, path string, body any, opts ...reqOption) *httptest.ResponseRecorder {
	f.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type envelope struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	e := decodeBody[envelope](t, rec)
	assert.Equal(t, status, e.Code)
	assert.Equal(t, kind, e.Error)
}

func (f *fixture) addAddress(userID string) {
	f.st.addresses[userID] = append(f.st.addresses[userID], address.Address{
		ID:        "a1",
		FullName:  "Asha Rao",
		Phone:     "9876543210",
		Line:      "12 MG Road",
		Pincode:   "560001",
		City:      "Bengaluru",
		State:     "KA",
		IsDefault: true,
	})
}

func TestPlaceOrder_RequiresLogin(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/orders", placeOrderRequest{})
	requireError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestPlaceOrder_InvalidToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/orders", placeOrderRequest{}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	})
	requireError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestPlaceOrder_FromCart(t *testing.T) {
	f := newFixture(t)
	f.addAddress("u1")
	u1 := f.as("u1")

	rec := f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p1", Quantity: 2, Size: "M"}, u1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := decodeBody[cartResponse](t, rec)
	require.Len(t, c.Items, 1)
	require.NotNil(t, c.Items[0].Product)
	assert.Equal(t, "Linen Shirt", c.Items[0].Product.Name)

	rec = f.do(http.MethodPost, "/api/orders", placeOrderRequest{PaymentMethod: "upi"}, u1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decodeBody[orderResponse](t, rec)

	assert.Equal(t, "u1", o.User)
	assert.Equal(t, 1000.0, o.ItemsPrice)
	assert.Equal(t, 0.0, o.ShippingPrice)
	assert.Equal(t, 50.0, o.TaxPrice)
	assert.Equal(t, 1050.0, o.TotalPrice)
	assert.True(t, o.IsPaid)
	assert.Equal(t, order.StatusPlaced, o.Status)
	assert.Equal(t, "Bengaluru", o.ShippingAddress.City)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "M", o.Items[0].Size)

	rec = f.do(http.MethodGet, "/api/cart", nil, u1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[cartResponse](t, rec).Items)

	rec = f.do(http.MethodGet, "/api/orders/track/"+o.PublicID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tr := decodeBody[trackingResponse](t, rec)
	assert.Equal(t, o.PublicID, tr.PublicID)
	assert.Equal(t, 1050.0, tr.TotalPrice)
}

func TestTrackOrder_NoInternalIDs(t *testing.T) {
	f := newFixture(t)
	f.addAddress("u1")
	u1 := f.as("u1")

	rec := f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p1", Quantity: 1}, u1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(http.MethodPost, "/api/orders", nil, u1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decodeBody[orderResponse](t, rec)

	rec = f.do(http.MethodGet, "/api/orders/track/"+o.PublicID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Items   []map[string]any `json:"orderItems"`
		Address map[string]any   `json:"shippingAddress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.NotContains(t, body.Items[0], "product")
	assert.Equal(t, "Linen Shirt", body.Items[0]["name"])
	assert.NotContains(t, body.Address, "addressId")
	assert.Equal(t, "Bengaluru", body.Address["city"])

	var top map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	for _, key := range []string{"_id", "id", "userId"} {
		assert.NotContains(t, top, key)
	}
	assert.NotContains(t, rec.Body.String(), `"u1"`)
}

func TestAPIKey_AdminAccess(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/admin/stats", nil, withAPIKey(testAPIKey))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/admin/stats", nil, withAPIKey("wrong-key"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *fixture)
		req    placeOrderRequest
		status int
		kind   string
	}{
		{
			name:   "empty cart",
			setup:  func(f *fixture) { f.addAddress("u1") },
			status: http.StatusBadRequest,
			kind:   "empty_cart",
		},
		{
			name: "no address",
			setup: func(f *fixture) {
				f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p2", Quantity: 1}, f.as("u1"))
			},
			status: http.StatusBadRequest,
			kind:   "no_shipping_address",
		},
		{
			name: "bad payment method",
			setup: func(f *fixture) {
				f.addAddress("u1")
				f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p2", Quantity: 1}, f.as("u1"))
			},
			req:    placeOrderRequest{PaymentMethod: "barter"},
			status: http.StatusBadRequest,
			kind:   "invalid_payment_method",
		},
		{
			name: "expired coupon",
			setup: func(f *fixture) {
				f.addAddress("u1")
				f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p2", Quantity: 1}, f.as("u1"))
			},
			req:    placeOrderRequest{CouponCode: "old"},
			status: http.StatusBadRequest,
			kind:   "coupon_expired",
		},
		{
			name: "product removed after adding",
			setup: func(f *fixture) {
				f.addAddress("u1")
				f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p2", Quantity: 1}, f.as("u1"))
				delete(f.st.products, "p2")
			},
			status: http.StatusUnprocessableEntity,
			kind:   "product_not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)
			rec := f.do(http.MethodPost, "/api/orders", tt.req, f.as("u1"))
			requireError(t, rec, tt.status, tt.kind)
		})
	}
}

func TestPlaceOrder_WithCoupon(t *testing.T) {
	f := newFixture(t)
	f.addAddress("u1")
	u1 := f.as("u1")
	f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p1", Quantity: 2}, u1)

	rec := f.do(http.MethodPost, "/api/orders", placeOrderRequest{CouponCode: " save10 "}, u1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decodeBody[orderResponse](t, rec)
	assert.Equal(t, "SAVE10", o.CouponCode)
	assert.Equal(t, 105.0, o.Discount)
	assert.Equal(t, 945.0, o.TotalPrice)
}

func TestApplyCoupon(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/coupons/apply", applyCouponRequest{Code: "SAVE10", OrderAmount: decimal.NewFromInt(200)})
	requireError(t, rec, http.StatusUnauthorized, "unauthorized")

	rec = f.do(http.MethodPost, "/api/coupons/apply", applyCouponRequest{Code: "save10", OrderAmount: decimal.NewFromInt(200)}, f.as("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[applyCouponResponse](t, rec)
	assert.Equal(t, "c1", got.CouponID)
	assert.Equal(t, 20.0, got.Discount)
	assert.Equal(t, 180.0, got.FinalAmount)

	rec = f.do(http.MethodPost, "/api/coupons/apply", applyCouponRequest{Code: "NOPE", OrderAmount: decimal.NewFromInt(200)}, f.as("u1"))
	requireError(t, rec, http.StatusBadRequest, "invalid_coupon")

	rec = f.do(http.MethodPost, "/api/coupons/apply", applyCouponRequest{Code: "  ", OrderAmount: decimal.NewFromInt(200)}, f.as("u1"))
	requireError(t, rec, http.StatusBadRequest, "invalid_coupon")
}

func TestUpdateCoupon_Partial(t *testing.T) {
	f := newFixture(t)
	f.st.coupons["c1"] = &coupon.Coupon{
		ID:            "c1",
		Title:         "Welcome",
		Code:          "WELCOME10",
		DiscountType:  coupon.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(50)),
		UsedCount:     3,
		Active:        true,
	}
	admin := f.as("admin")

	rec := f.do(http.MethodPut, "/api/coupons/c1", map[string]any{"isActive": false}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[couponResponse](t, rec)
	assert.False(t, got.Active)
	assert.Equal(t, "Welcome", got.Title)
	assert.Equal(t, "WELCOME10", got.Code)
	assert.Equal(t, 10.0, got.DiscountValue)
	require.NotNil(t, got.MaxDiscount)
	assert.Equal(t, 50.0, *got.MaxDiscount)
	assert.Equal(t, 3, got.UsedCount)

	// A zero cap is stored as no cap.
	rec = f.do(http.MethodPut, "/api/coupons/c1", map[string]any{"maxDiscount": 0}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decodeBody[couponResponse](t, rec)
	assert.Nil(t, got.MaxDiscount)
	assert.False(t, f.st.coupons["c1"].MaxDiscount.Valid)

	rec = f.do(http.MethodPut, "/api/coupons/c1", map[string]any{"title": ""}, admin)
	requireError(t, rec, http.StatusBadRequest, "validation")
	assert.Equal(t, "Welcome", f.st.coupons["c1"].Title)

	rec = f.do(http.MethodPut, "/api/coupons/missing", map[string]any{"isActive": true}, admin)
	requireError(t, rec, http.StatusNotFound, "not_found")
}

func TestCreateCoupon(t *testing.T) {
	f := newFixture(t)
	admin := f.as("admin")

	rec := f.do(http.MethodPost, "/api/coupons", map[string]any{
		"title":         "Flat",
		"code":          " flat150 ",
		"discountType":  "fixed",
		"discountValue": 150,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decodeBody[couponResponse](t, rec)
	assert.Equal(t, "FLAT150", got.Code)
	assert.True(t, got.Active)
	assert.Nil(t, got.MaxDiscount)

	rec = f.do(http.MethodPost, "/api/coupons", map[string]any{"code": "NOTITLE"}, admin)
	requireError(t, rec, http.StatusBadRequest, "validation")

	rec = f.do(http.MethodPost, "/api/coupons", map[string]any{"isActive": false}, f.as("u1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	f.addAddress("u1")
	u1 := f.as("u1")
	f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p2", Quantity: 1}, u1)
	placed := decodeBody[orderResponse](t, f.do(http.MethodPost, "/api/orders", nil, u1))

	rec := f.do(http.MethodPut, "/api/orders/"+placed.ID+"/cancel", cancelRequest{Reason: "x"}, f.as("u2"))
	requireError(t, rec, http.StatusForbidden, "forbidden")

	rec = f.do(http.MethodPut, "/api/orders/"+placed.ID+"/cancel", cancelRequest{Reason: "changed my mind"}, u1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	o := decodeBody[orderResponse](t, rec)
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.Equal(t, "changed my mind", o.CancelReason)
	assert.NotNil(t, o.CancelledAt)

	rec = f.do(http.MethodPut, "/api/orders/"+placed.ID+"/cancel", nil, u1)
	requireError(t, rec, http.StatusBadRequest, "order_not_cancellable")

	rec = f.do(http.MethodPut, "/api/orders/missing/cancel", nil, u1)
	requireError(t, rec, http.StatusNotFound, "not_found")
}

func TestUpdateOrder_Admin(t *testing.T) {
	f := newFixture(t)
	f.addAddress("u1")
	u1 := f.as("u1")
	f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p2", Quantity: 1}, u1)
	placed := decodeBody[orderResponse](t, f.do(http.MethodPost, "/api/orders", nil, u1))

	status := "Shipped"
	rec := f.do(http.MethodPut, "/api/orders/"+placed.ID, updateOrderRequest{Status: &status}, u1)
	requireError(t, rec, http.StatusForbidden, "forbidden")

	rec = f.do(http.MethodPut, "/api/orders/"+placed.ID, updateOrderRequest{Status: &status}, f.as("admin"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, order.StatusShipped, decodeBody[orderResponse](t, rec).Status)

	bogus := "Lost"
	rec = f.do(http.MethodPut, "/api/orders/"+placed.ID, updateOrderRequest{Status: &bogus}, f.as("admin"))
	requireError(t, rec, http.StatusBadRequest, "invalid_status")

	delivered, paid := "Delivered", true
	rec = f.do(http.MethodPut, "/api/orders/"+placed.ID, updateOrderRequest{Status: &delivered, IsPaid: &paid}, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	o := decodeBody[orderResponse](t, rec)
	assert.True(t, o.IsDelivered)
	assert.True(t, o.IsPaid)

	rec = f.do(http.MethodPut, "/api/orders/"+placed.ID, updateOrderRequest{Status: &status}, f.as("admin"))
	requireError(t, rec, http.StatusBadRequest, "invalid_transition")

	rec = f.do(http.MethodGet, "/api/admin/stats", nil, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decodeBody[statsResponse](t, rec)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalOrders)
	assert.Equal(t, placed.TotalPrice, stats.TotalRevenue)
}

func TestAdminRoutes_Guarded(t *testing.T) {
	f := newFixture(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/api/admin/users"},
		{http.MethodGet, "/api/admin/stats"},
		{http.MethodDelete, "/api/products/p1"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			requireError(t, f.do(p.method, p.path, nil), http.StatusUnauthorized, "unauthorized")
			requireError(t, f.do(p.method, p.path, nil, f.as("u1")), http.StatusForbidden, "forbidden")
		})
	}

	requireError(t, f.do(http.MethodGet, "/api/admin/users", nil, withAPIKey("wrong")), http.StatusUnauthorized, "unauthorized")
}

func TestUserRoutes_RejectAPIKey(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/cart", nil, withAPIKey(testAPIKey))
	requireError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestDeletedUserTokenRejected(t *testing.T) {
	f := newFixture(t)
	u2 := f.as("u2")

	rec := f.do(http.MethodDelete, "/api/admin/users/u2", nil, f.as("admin"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	requireError(t, f.do(http.MethodGet, "/api/users/me", nil, u2), http.StatusUnauthorized, "unauthorized")
}

func TestOTPLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/phone/request-otp", phoneRequest{Phone: "9000001234"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := decodeBody[otpResponse](t, rec).OTP
	require.Len(t, code, 6)

	rec = f.do(http.MethodPost, "/api/auth/phone/verify-otp", verifyRequest{Phone: "9000001234", OTP: "000000"})
	requireError(t, rec, http.StatusBadRequest, "invalid_otp")

	rec = f.do(http.MethodPost, "/api/auth/phone/verify-otp", verifyRequest{Phone: "9000001234", OTP: code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decodeBody[sessionResponse](t, rec)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "User-1234", session.User.Name)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = f.do(http.MethodGet, "/api/users/me", nil, func(r *http.Request) { r.AddCookie(cookies[0]) })
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "9000001234", decodeBody[userResponse](t, rec).Phone)

	// codes are single use
	rec = f.do(http.MethodPost, "/api/auth/phone/verify-otp", verifyRequest{Phone: "9000001234", OTP: code})
	requireError(t, rec, http.StatusBadRequest, "invalid_otp")

	rec = f.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestCart_UpdateAndRemove(t *testing.T) {
	f := newFixture(t)
	u1 := f.as("u1")

	f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p1", Quantity: 1, Size: "M"}, u1)
	f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p1", Quantity: 2, Size: "M"}, u1)
	f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p2", Quantity: 1}, u1)

	c := decodeBody[cartResponse](t, f.do(http.MethodGet, "/api/cart", nil, u1))
	require.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Items[0].Quantity)

	rec := f.do(http.MethodPut, "/api/cart", cartItemRequest{ProductID: "p1", Size: "M", Quantity: 0}, u1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c = decodeBody[cartResponse](t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p2", c.Items[0].ProductID)

	rec = f.do(http.MethodDelete, "/api/cart", cartItemRequest{ProductID: "p1", Size: "M"}, u1)
	requireError(t, rec, http.StatusNotFound, "not_found")

	rec = f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "ghost", Quantity: 1}, u1)
	requireError(t, rec, http.StatusUnprocessableEntity, "product_not_found")

	rec = f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p1", Quantity: -1}, u1)
	requireError(t, rec, http.StatusBadRequest, "validation")

	rec = f.do(http.MethodDelete, "/api/cart/all", nil, u1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.st.carts)
}

func TestAddresses(t *testing.T) {
	f := newFixture(t)
	u1 := f.as("u1")

	rec := f.do(http.MethodPost, "/api/addresses", map[string]string{"fullName": "Asha"}, u1)
	requireError(t, rec, http.StatusBadRequest, "validation")

	body := map[string]string{
		"fullName": "Asha Rao",
		"phone":    "9876543210",
		"address":  "12 MG Road",
		"pincode":  "560001",
		"city":     "Bengaluru",
		"state":    "KA",
	}
	rec = f.do(http.MethodPost, "/api/addresses", body, u1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	list := decodeBody[[]addressResponse](t, rec)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)

	rec = f.do(http.MethodPost, "/api/addresses", body, u1)
	list = decodeBody[[]addressResponse](t, rec)
	require.Len(t, list, 2)

	rec = f.do(http.MethodPut, "/api/addresses/"+list[1].ID+"/default", nil, u1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list = decodeBody[[]addressResponse](t, rec)
	assert.False(t, list[0].IsDefault)
	assert.True(t, list[1].IsDefault)

	rec = f.do(http.MethodPut, "/api/addresses/nope/default", nil, u1)
	requireError(t, rec, http.StatusNotFound, "not_found")
}

func TestWishlist(t *testing.T) {
	f := newFixture(t)
	u1 := f.as("u1")

	rec := f.do(http.MethodPost, "/api/wishlist", wishlistRequest{ProductID: "p1"}, u1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f.do(http.MethodPost, "/api/wishlist", wishlistRequest{ProductID: "p1"}, u1)

	list := decodeBody[[]productResponse](t, f.do(http.MethodGet, "/api/wishlist", nil, u1))
	require.Len(t, list, 1)
	assert.Equal(t, "Linen Shirt", list[0].Name)

	requireError(t, f.do(http.MethodPost, "/api/wishlist", wishlistRequest{ProductID: "ghost"}, u1), http.StatusNotFound, "not_found")

	rec = f.do(http.MethodDelete, "/api/wishlist/p1", nil, u1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]productResponse](t, rec))
}

func TestBanners_InactiveOnlyForAdmin(t *testing.T) {
	f := newFixture(t)
	f.st.banners = []catalog.Banner{
		{ID: "b1", Kind: catalog.BannerExclusive, Title: "On", Image: "on.jpg", Active: true},
		{ID: "b2", Kind: catalog.BannerExclusive, Title: "Off", Image: "off.jpg"},
	}

	list := decodeBody[[]bannerResponse](t, f.do(http.MethodGet, "/api/banners/exclusive?all=true", nil))
	assert.Len(t, list, 1)

	list = decodeBody[[]bannerResponse](t, f.do(http.MethodGet, "/api/banners/exclusive?all=true", nil, f.as("admin")))
	assert.Len(t, list, 2)

	requireError(t, f.do(http.MethodGet, "/api/banners/sidebar", nil), http.StatusBadRequest, "validation")

	rec := f.do(http.MethodPost, "/api/banners/hero", bannerBody{Title: "Sale", Image: "sale.jpg"}, f.as("admin"))
	requireError(t, rec, http.StatusBadRequest, "validation")
}

func TestOrderEvents(t *testing.T) {
	f := newFixture(t)
	f.addAddress("u1")
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	tok, _, err := f.tokens.Issue("admin")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + tok}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	u1 := f.as("u1")
	f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p2", Quantity: 1}, u1)
	placed := decodeBody[orderResponse](t, f.do(http.MethodPost, "/api/orders", nil, u1))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e order.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, order.EventPlaced, e.Type)
	assert.Equal(t, placed.PublicID, e.PublicID)
	assert.Equal(t, "u1", e.UserID)
}

func TestMyOrderEvents(t *testing.T) {
	f := newFixture(t)
	f.addAddress("u1")
	f.addAddress("u2")
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	tok, _, err := f.tokens.Issue("u1")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/mine/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + tok}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	u2 := f.as("u2")
	f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p1", Quantity: 1}, u2)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/orders", nil, u2).Code)

	u1 := f.as("u1")
	f.do(http.MethodPost, "/api/cart", cartItemRequest{ProductID: "p2", Quantity: 1}, u1)
	mine := decodeBody[orderResponse](t, f.do(http.MethodPost, "/api/orders", nil, u1))

	// The first event delivered is u1's; u2's order never reaches this stream.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e order.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, mine.PublicID, e.PublicID)
	assert.Equal(t, "u1", e.UserID)
}

func TestMyOrderEvents_RequiresUser(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/orders/mine/events", nil, withAPIKey(testAPIKey))
	requireError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"wrapped not found", errors.Wrap(cart.ErrItemNotFound, "remove"), http.StatusNotFound, "not_found"},
		{"product gone", errors.Wrap(&order.ProductNotFoundError{ProductID: "p9"}, "place"), http.StatusUnprocessableEntity, "product_not_found"},
		{"minimum order", &coupon.MinimumOrderError{Min: decimal.NewFromInt(500)}, http.StatusBadRequest, "below_minimum_order"},
		{"usage limit", coupon.ErrUsageLimitExceeded, http.StatusBadRequest, "usage_limit_exceeded"},
		{"duplicate", catalog.ErrDuplicateSlug, http.StatusConflict, "conflict"},
		{"storage", persist.Wrap(errors.New("conn reset"), "list orders"), http.StatusServiceUnavailable, "persistence_failure"},
		{"id space", order.ErrOrderIDExhausted, http.StatusServiceUnavailable, "order_id_exhausted"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			requireError(t, rec, tt.status, tt.kind)
		})
	}
}

func TestWriteError_HidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), persist.Wrap(errors.New("password=hunter2"), "connect"))
	assert.NotContains(t, rec.Body.String(), "hunter2")
}
