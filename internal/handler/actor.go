package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xenking/footwear-cart/internal/domain/coupon"
)

const (
	// GuestSessionHeader carries the guest session id for API clients.
	GuestSessionHeader = "X-Guest-Session"
	// GuestSessionCookie carries the guest session id for browsers.
	GuestSessionCookie = "guest_session"

	guestSessionPrefix = "guest_"
	guestSessionMaxAge = 30 * 24 * time.Hour
	maxGuestSessionLen = 128
)

var (
	errUnauthorized  = errors.New("invalid or expired token")
	jwtSigningMethod = jwt.SigningMethodHS256
)

type actorKey struct{}

// ActorFromContext returns the actor resolved for the request.
func ActorFromContext(ctx context.Context) coupon.Actor {
	a, _ := ctx.Value(actorKey{}).(coupon.Actor)
	return a
}

// ActorKey returns the ledger key of the request's actor. Used to key rate
// limits.
func ActorKey(r *http.Request) string {
	return ActorFromContext(r.Context()).Key()
}

// identify resolves the actor from a bearer token and the guest session. A
// guest session is minted and set as a cookie when the request carries none,
// so every request has a stable actor key.
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var actor coupon.Actor

		if token, ok := bearerToken(r); ok {
			userID, err := h.parseToken(token)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			actor.UserID = userID
		}

		actor.GuestSessionID = guestSession(r)
		if actor.GuestSessionID == "" {
			actor.GuestSessionID = guestSessionPrefix + uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     GuestSessionCookie,
				Value:    actor.GuestSessionID,
				Path:     "/",
				MaxAge:   int(guestSessionMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   h.secureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseToken validates an HS256 token and returns its subject.
func (h *Handler) parseToken(token string) (string, error) {
	if len(h.jwtSecret) == 0 {
		return "", errUnauthorized
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwtSigningMethod {
				return nil, errors.Errorf("unexpected signing method %s", t.Header["alg"])
			}
			return h.jwtSecret, nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", errors.Wrap(errUnauthorized, err.Error())
	}
	if claims.Subject == "" {
		return "", errUnauthorized
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func guestSession(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(GuestSessionHeader)); validGuestSession(v) {
		return v
	}
	if c, err := r.Cookie(GuestSessionCookie); err == nil && validGuestSession(c.Value) {
		return c.Value
	}
	return ""
}

// validGuestSession accepts non-empty printable ASCII ids without spaces.
func validGuestSession(id string) bool {
	if id == "" || len(id) > maxGuestSessionLen {
		return false
	}
	for i := range len(id) {
		if id[i] <= 0x20 || id[i] > 0x7E {
			return false
		}
	}
	return true
}
