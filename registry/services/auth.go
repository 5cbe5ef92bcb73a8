package services

import (
	"errors"
	"log/slog"
	"mossi_registry/registry/auth"
	"mossi_registry/utils"
	"mossi_registry/utils/logging"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type AuthService struct {
	gate       *auth.SessionGate
	loginLimit func(http.Handler) http.Handler
}

func (s *AuthService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if s.loginLimit != nil {
			r.Use(s.loginLimit)
		}

		r.Post("/login", s.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.gate.AuthMiddleware()...)

		r.Post("/logout", s.Logout)
		r.Get("/me", s.Me)
	})

	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminInfo struct {
	Id    uint   `json:"id"`
	Email string `json:"email"`
}

type LoginResponse struct {
	Success bool      `json:"success"`
	User    AdminInfo `json:"user"`
}

type CurrentAdminInfo struct {
	Id        uint      `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type CurrentAdminResponse struct {
	User CurrentAdminInfo `json:"user"`
}

func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var params loginRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	result, err := s.gate.Login(r.Context(), params.Email, params.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			loginAttempts.WithLabelValues("invalid_request").Inc()
			utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, auth.ErrInvalidCredentials):
			loginAttempts.WithLabelValues("rejected").Inc()
			s.gate.AuditLog().Event(r, "login_failed", "email", params.Email)
			utils.WriteJsonError(w, err.Error(), http.StatusUnauthorized)
		default:
			loginAttempts.WithLabelValues("error").Inc()
			slog.Error("login error", "error", err, "code", logging.AUTH_LOGIN)
			writeError(w, CodedError(err, http.StatusInternalServerError))
		}
		return
	}

	loginAttempts.WithLabelValues("success").Inc()
	s.gate.AuditLog().Event(r, "login", "email", result.Admin.Email, "user_id", result.Admin.Id)

	http.SetCookie(w, result.Cookie)
	utils.WriteJsonResponse(w, LoginResponse{
		Success: true,
		User:    AdminInfo{Id: result.Admin.Id, Email: result.Admin.Email},
	})
}

func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.gate.LogoutCookie())
	slog.Info("admin logged out", "code", logging.AUTH_LOGOUT)
	utils.WriteSuccess(w)
}

func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	admin, err := auth.AdminFromContext(r)
	if err != nil {
		utils.WriteJsonError(w, auth.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	utils.WriteJsonResponse(w, CurrentAdminResponse{
		User: CurrentAdminInfo{Id: admin.Id, Email: admin.Email, CreatedAt: admin.CreatedAt},
	})
}
