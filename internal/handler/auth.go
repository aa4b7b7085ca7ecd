package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
)

const (
	cookieName   = "jwt"
	apiKeyHeader = "api_key"
)

// authenticate resolves the caller from a bearer token, the session cookie or
// an API key. Requests without credentials pass through anonymously; invalid
// credentials are rejected.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var (
			actor auth.Actor
			err   error
		)
		switch token, key := sessionToken(r), r.Header.Get(apiKeyHeader); {
		case token != "":
			actor, err = h.Auth.FromToken(ctx, token)
		case key != "":
			actor, err = h.Auth.FromAPIKey(ctx, key)
		default:
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx = auth.WithActor(ctx, actor)
		ctx = zctx.With(ctx, zap.String("actor", actorName(actor)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

func actorName(a auth.Actor) string {
	if a.KeyName != "" {
		return "key:" + a.KeyName
	}
	return a.UserID
}

// requireActor rejects anonymous requests.
func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.ActorFrom(r.Context()); !ok {
			writeError(w, r, auth.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser rejects requests not made on behalf of a user account. API keys
// carry no cart, addresses or orders of their own.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a, ok := auth.ActorFrom(r.Context()); !ok || a.UserID == "" {
			writeError(w, r, auth.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := auth.ActorFrom(r.Context())
		switch {
		case !ok:
			writeError(w, r, auth.ErrUnauthorized)
		case !a.Admin:
			writeError(w, r, auth.ErrForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func actorOf(r *http.Request) auth.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}

func (h *Handler) limitOTP(next http.Handler) http.Handler {
	if h.OTPLimiter == nil {
		return next
	}
	return h.OTPLimiter.Middleware()(next)
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

type otpResponse struct {
	Message string `json:"message"`
	// OTP is only set when codes are exposed for development.
	OTP string `json:"otp,omitempty"`
}

func (h *Handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	code, err := h.OTP.Request(r.Context(), strings.TrimSpace(req.Phone))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, otpResponse{Message: "OTP sent", OTP: code})
}

type verifyRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	phone := strings.TrimSpace(req.Phone)
	if err := h.OTP.Verify(ctx, phone, strings.TrimSpace(req.OTP)); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.Users.FindOrCreateByPhone(ctx, phone)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "find user by phone"))
		return
	}
	token, err := h.Auth.Issue(u.ID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "issue token"))
		return
	}

	zctx.From(ctx).Info("User logged in", zap.String("user_id", u.ID))
	h.setSessionCookie(w, token, h.cfg.TokenTTL)
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: toUser(u)})
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, message{Message: "Logged out"})
}

// setSessionCookie writes the session cookie; a negative ttl deletes it.
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.Expires = h.now().Add(ttl)
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}
