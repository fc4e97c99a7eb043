package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/familyfeed/internal/auth"
	"github.com/dukerupert/familyfeed/internal/middleware"
	"github.com/dukerupert/familyfeed/internal/model"
	"github.com/dukerupert/familyfeed/internal/roster"
	"github.com/dukerupert/familyfeed/internal/store"
)

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	dir          *roster.Directory
	secureCookie bool
	// onAccountDeleted runs after a user and their records are gone.
	onAccountDeleted func(userID string)
	logger           *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, dir *roster.Directory, secureCookie bool, onAccountDeleted func(string), logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:        us,
		sessionStore:     ss,
		dir:              dir,
		secureCookie:     secureCookie,
		onAccountDeleted: onAccountDeleted,
		logger:           logger,
	}
}

type sessionResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	sess, err := h.sessionStore.Create(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("create session", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, sessionResponse{User: user, Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	user, err := h.userStore.Create(r.Context(), req.Username, strings.TrimSpace(req.Email), strings.TrimSpace(req.FullName), hash)
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "username is taken")
		return
	}
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	h.logger.Info("user signed up", "user", user.ID, "username", user.Username)
	h.startSession(w, r, user, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, hash, err := h.userStore.GetCredentials(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		h.logger.Error("look up credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	if user == nil || !auth.CheckPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if ac.SessionID != 0 {
		if err := h.sessionStore.Delete(r.Context(), ac.SessionID); err != nil {
			h.logger.Error("delete session", "session", ac.SessionID, "error", err)
		}
	}
	if n, err := h.sessionStore.CountActive(r.Context(), ac.UserID); err != nil {
		h.logger.Error("count sessions", "user", ac.UserID, "error", err)
	} else if n == 0 {
		h.dir.Forget(ac.UserID)
	}
	h.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	user, err := h.userStore.GetByID(r.Context(), ac.UserID)
	if err != nil {
		h.logger.Error("get user", "user", ac.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteAccount removes every family member the caller owns, then the user
// and their sessions. If any record cannot be deleted the account is kept so
// the call can be retried.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	n, err := h.dir.For(ac.UserID).PurgeOwner(r.Context(), ac)
	if err != nil {
		writeRosterError(w, h.logger, err)
		return
	}

	if err := h.userStore.Delete(r.Context(), ac.UserID); err != nil {
		h.logger.Error("delete user", "user", ac.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	h.dir.Forget(ac.UserID)
	if h.onAccountDeleted != nil {
		h.onAccountDeleted(ac.UserID)
	}

	h.logger.Info("account deleted", "user", ac.UserID, "records", n)
	h.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
