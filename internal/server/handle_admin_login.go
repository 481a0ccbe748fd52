package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/harvest/internal/repository"
)

// AdminLoginRequest is the request body for POST /api/admin/login and
// PUT /api/admin/credentials.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminMeResponse is the response for GET /api/admin/me.
type AdminMeResponse struct {
	Username string `json:"username"`
}

func handleAdminLogin(logger *slog.Logger, repo *repository.Repository, sessions *adminSessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLoginRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		creds, err := repo.Admin(r.Context())
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			logger.Error("loading admin credentials", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if req.Username != creds.Username || !checkPassword(creds.Password, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    sessions.create(creds.Username),
			Path:     "/",
			MaxAge:   int(adminSessionTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, AdminMeResponse{Username: creds.Username})
	}
}

func handleAdminMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, AdminMeResponse{Username: adminFrom(r).Username})
	}
}

// handleAdminCredentials replaces the admin account. The password is
// stored as a bcrypt hash.
func handleAdminCredentials(repo *repository.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLoginRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusBadRequest, "password not accepted")
			return
		}
		err = repo.SetAdmin(r.Context(), repository.AdminCredentials{
			Username: req.Username,
			Password: string(hash),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, AdminMeResponse{Username: req.Username})
	}
}
