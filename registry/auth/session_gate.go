package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mossi_registry/registry/schema"
	"mossi_registry/utils"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type SessionGate struct {
	jwtManager    *JwtManager
	db            *gorm.DB
	auditLog      AuditLogger
	secureCookies bool
}

type SessionGateArgs struct {
	Secret []byte

	// Marks the session cookie as Secure, set in production.
	SecureCookies bool

	// Optional bootstrap admin, created if no admin with this email exists.
	AdminEmail    string
	AdminPassword string

	// Defaults to SessionDuration.
	SessionDuration time.Duration
}

type LoginResult struct {
	Admin  schema.AdminUser
	Token  string
	Cookie *http.Cookie
}

func NewSessionGate(db *gorm.DB, auditLog AuditLogger, args SessionGateArgs) (*SessionGate, error) {
	if len(args.Secret) == 0 {
		return nil, errors.New("session secret must not be empty")
	}

	if args.AdminEmail != "" && args.AdminPassword != "" {
		if err := AddAdmin(db, args.AdminEmail, args.AdminPassword); err != nil {
			return nil, fmt.Errorf("error adding initial admin to db: %w", err)
		}
	}

	ttl := args.SessionDuration
	if ttl == 0 {
		ttl = SessionDuration
	}

	return &SessionGate{
		jwtManager:    NewJwtManager(args.Secret, ttl),
		db:            db,
		auditLog:      auditLog,
		secureCookies: args.SecureCookies,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Creates the admin if no admin with the email exists. Existing admins are left
// untouched, including their password.
func AddAdmin(db *gorm.DB, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return ErrMissingCredentials
	}

	hashedPwd, err := HashPassword(password)
	if err != nil {
		return err
	}

	return db.Transaction(func(txn *gorm.DB) error {
		var existing schema.AdminUser
		result := txn.Limit(1).Find(&existing, "email = ?", email)
		if result.Error != nil {
			slog.Error("sql error checking for existing admin", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected != 0 {
			return nil
		}

		result = txn.Create(&schema.AdminUser{Email: email, Password: hashedPwd})
		if result.Error != nil {
			slog.Error("sql error creating admin", "error", result.Error)
			return schema.ErrDbAccessFailed
		}

		slog.Info("created admin user", "email", email)
		return nil
	})
}

func (g *SessionGate) addAdminToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			userId, err := ValueFromContext(r, userIdKey)
			if err != nil {
				utils.WriteJsonError(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}

			id, err := strconv.ParseUint(userId, 10, 32)
			if err != nil {
				utils.WriteJsonError(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}

			admin, err := schema.GetAdminUser(uint(id), g.db.WithContext(r.Context()))
			if err != nil {
				if errors.Is(err, schema.ErrAdminUserNotFound) {
					utils.WriteJsonError(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
					return
				}
				utils.WriteJsonError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			reqCtx := context.WithValue(r.Context(), adminRequestContextKey, admin)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		}

		return http.HandlerFunc(handler)
	}
}

func (g *SessionGate) AuthMiddleware() chi.Middlewares {
	return chi.Middlewares{g.jwtManager.Verifier(), g.jwtManager.Authenticator(), g.addAdminToContext(), g.auditLog.Middleware}
}

func (g *SessionGate) AuditLog() *AuditLogger {
	return &g.auditLog
}

func (g *SessionGate) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	admin, err := schema.GetAdminUserByEmail(email, g.db.WithContext(ctx))
	if err != nil {
		if errors.Is(err, schema.ErrAdminUserNotFound) {
			burnPasswordCheck(password)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := VerifyPassword(admin.Password, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := g.jwtManager.CreateSessionJwt(admin)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Admin: admin, Token: token, Cookie: g.sessionCookie(token)}, nil
}

func (g *SessionGate) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.jwtManager.ttl.Seconds()),
		HttpOnly: true,
		Secure:   g.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// Tokens are not revoked, logout only instructs the browser to drop the cookie.
func (g *SessionGate) LogoutCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
