package auth

import (
	"fmt"
	"log/slog"
	"mossi_registry/registry/schema"
	"mossi_registry/utils"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth/v5"
)

const (
	SessionCookieName = "mossi_token"
	SessionDuration   = 7 * 24 * time.Hour

	userIdKey = "user_id"
	emailKey  = "email"
)

type JwtManager struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
}

func NewJwtManager(secret []byte, ttl time.Duration) *JwtManager {
	return &JwtManager{auth: jwtauth.New("HS256", secret, nil), ttl: ttl}
}

func tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// The session cookie is checked first, api clients may instead send the token
// as a bearer token.
func (m *JwtManager) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(m.auth, tokenFromCookie, jwtauth.TokenFromHeader)
}

func (m *JwtManager) Authenticator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				utils.WriteJsonError(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *JwtManager) CreateSessionJwt(user schema.AdminUser) (string, error) {
	claims := map[string]interface{}{
		userIdKey: strconv.FormatUint(uint64(user.Id), 10),
		emailKey:  user.Email,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, m.ttl)

	_, token, err := m.auth.Encode(claims)
	if err != nil {
		slog.Error("error generating jwt", "error", err)
		return "", fmt.Errorf("%w: %v", ErrGeneratingJwt, err)
	}
	return token, nil
}

func ValueFromContext(r *http.Request, key string) (string, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", fmt.Errorf("error retrieving auth claims: %w", err)
	}

	valueUncasted, ok := claims[key]
	if !ok {
		return "", fmt.Errorf("invalid token: unable to locate key %v in claims", key)
	}

	value, ok := valueUncasted.(string)
	if !ok {
		return "", fmt.Errorf("invalid token: value for key %v has invalid type", key)
	}

	return value, nil
}

func AdminFromContext(r *http.Request) (schema.AdminUser, error) {
	adminUntyped := r.Context().Value(adminRequestContextKey)
	if adminUntyped == nil {
		return schema.AdminUser{}, fmt.Errorf("admin field not found in request context")
	}
	admin, ok := adminUntyped.(schema.AdminUser)
	if !ok {
		return schema.AdminUser{}, fmt.Errorf("invalid value for admin field")
	}
	return admin, nil
}
