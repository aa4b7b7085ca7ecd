// Package handler exposes the storefront over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/notify"
	"github.com/xenking/storefront/internal/otp"
	"github.com/xenking/storefront/internal/security"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Config holds non-dependency settings of the Handler.
type Config struct {
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
	// TokenTTL is the lifetime of the session cookie.
	TokenTTL time.Duration
}

// Deps are the services the Handler delegates to.
type Deps struct {
	Orders     *order.Service
	Carts      *cart.Service
	Coupons    coupon.Repository
	Evaluator  coupon.Evaluator
	Addresses  address.Repository
	Users      user.Repository
	Products   catalog.ProductRepository
	Categories catalog.CategoryRepository
	Banners    catalog.BannerRepository
	OTP        *otp.Service
	Auth       *security.Authenticator
	Events     *notify.Hub
	// OTPLimiter throttles code requests; nil disables it.
	OTPLimiter *httpmiddleware.Limiter
}

// Handler implements the storefront HTTP API.
type Handler struct {
	Deps
	cfg Config
	now func() time.Time
}

// New constructs a Handler.
func New(cfg Config, deps Deps) *Handler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * 24 * time.Hour
	}
	return &Handler{Deps: deps, cfg: cfg, now: time.Now}
}

// Router returns the API routes mounted under /api. middlewares run inside
// the chi router, so they can see the matched route pattern.
func (h *Handler) Router(middlewares ...httpmiddleware.Middleware) chi.Router {
	r := chi.NewRouter()
	for _, m := range middlewares {
		r.Use(m)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.With(h.limitOTP).Post("/phone/request-otp", h.requestOTP)
			r.Post("/phone/verify-otp", h.verifyOTP)
			r.Post("/logout", h.logout)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/track/{orderId}", h.trackOrder)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/", h.placeOrder)
				r.Get("/mine", h.myOrders)
				r.Get("/mine/events", h.myOrderEvents)
				r.Delete("/mine", h.clearMyOrders)
				r.Delete("/mine/{id}", h.deleteMyOrder)
			})
			r.With(requireActor).Put("/{id}/cancel", h.cancelOrder)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", h.listOrders)
				r.Get("/events", h.orderEvents)
				r.Put("/{id}", h.updateOrder)
				r.Delete("/{id}", h.deleteOrder)
			})
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/active", h.activeCoupons)
			r.With(requireActor).Post("/apply", h.applyCoupon)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", h.listCoupons)
				r.Post("/", h.createCoupon)
				r.Get("/{id}", h.getCoupon)
				r.Put("/{id}", h.updateCoupon)
				r.Delete("/{id}", h.deleteCoupon)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", h.getCart)
			r.Post("/", h.addToCart)
			r.Put("/", h.updateCartItem)
			r.Delete("/", h.removeFromCart)
			r.Delete("/all", h.clearCart)
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", h.listAddresses)
			r.Post("/", h.createAddress)
			r.Put("/{id}", h.updateAddress)
			r.Delete("/{id}", h.deleteAddress)
			r.Put("/{id}/default", h.setDefaultAddress)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", h.getWishlist)
			r.Post("/", h.addToWishlist)
			r.Delete("/{productId}", h.removeFromWishlist)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/{id}", h.getProduct)
			r.With(requireAdmin).Post("/", h.createProduct)
			r.With(requireAdmin).Put("/{id}", h.updateProduct)
			r.With(requireAdmin).Delete("/{id}", h.deleteProduct)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.listCategories)
			r.With(requireAdmin).Post("/", h.createCategory)
			r.With(requireAdmin).Put("/{id}", h.updateCategory)
			r.With(requireAdmin).Delete("/{id}", h.deleteCategory)
		})

		r.Route("/banners/{kind}", func(r chi.Router) {
			r.Get("/", h.listBanners)
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/", h.createBanner)
				r.Put("/{id}", h.updateBanner)
				r.Patch("/{id}", h.toggleBanner)
				r.Delete("/{id}", h.deleteBanner)
			})
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", h.getMe)
			r.Put("/", h.updateMe)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/stats", h.stats)
			r.Get("/users", h.listUsers)
			r.Put("/users/{id}", h.setUserAdmin)
			r.Delete("/users/{id}", h.deleteUser)
		})
	})
	return r
}
