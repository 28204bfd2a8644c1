package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/facegate-io/facegate/internal/http/middleware"
	"github.com/facegate-io/facegate/internal/http/response"
	"github.com/facegate-io/facegate/internal/observability"
	"github.com/facegate-io/facegate/internal/security"
	"github.com/facegate-io/facegate/internal/service"
)

type AuthHandler struct {
	authSvc      service.AuthServiceInterface
	cookieMgr    *security.CookieManager
	assertionTTL time.Duration
}

func NewAuthHandler(authSvc service.AuthServiceInterface, cookieMgr *security.CookieManager, assertionTTL time.Duration) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookieMgr: cookieMgr, assertionTTL: assertionTTL}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "register", status, time.Since(start))
	}()

	var in service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}

	res, err := h.authSvc.Register(r.Context(), in)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.register.failed", "reason", "internal")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "registration failed", nil)
		return
	}
	if !res.Accepted {
		status = "failure"
		observability.Audit(r, "auth.register.rejected", "uuid", res.UUID)
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_FAILED", res.Message, map[string]string{"uuid": res.UUID})
		return
	}
	observability.Audit(r, "auth.register.success", "uuid", res.UUID, "ip", clientIP(r))
	response.JSON(w, r, http.StatusCreated, map[string]string{"uuid": res.UUID, "message": res.Message})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login is the credential stage. On success the session assertion is set as
// an HttpOnly cookie and echoed in the body for non-browser clients; the
// caller must still pass the biometric stage before being authenticated.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start))
	}()

	var in loginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}

	res, err := h.authSvc.LoginWithCredentials(r.Context(), in.Email, in.Password)
	if err != nil {
		status = "failure"
		if errors.Is(err, service.ErrInvalidCredentials) {
			observability.Audit(r, "auth.login.rejected", "ip", clientIP(r))
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
			return
		}
		observability.Audit(r, "auth.login.failed", "reason", "internal")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}

	h.cookieMgr.SetAssertionCookie(w, res.Assertion, h.assertionTTL)
	observability.Audit(r, "auth.login.credential_stage_passed", "uuid", res.User.UUID, "ip", clientIP(r))
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":       res.User,
		"assertion":  res.Assertion,
		"expires_at": res.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "logout", status, time.Since(start))
	}()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		status = "failure"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	h.cookieMgr.ClearAssertionCookie(w)
	observability.Audit(r, "auth.logout", "uuid", claims.Subject)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
