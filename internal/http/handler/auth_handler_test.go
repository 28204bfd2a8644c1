package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/facegate-io/facegate/internal/domain"
	"github.com/facegate-io/facegate/internal/http/middleware"
	"github.com/facegate-io/facegate/internal/security"
	"github.com/facegate-io/facegate/internal/service"
)

type errorEnvelope struct {
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type stubAuthService struct {
	registerFn func(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	loginFn    func(ctx context.Context, identifier, secret string) (*service.LoginResult, error)
	completeFn func(ctx context.Context, token string, images [][]byte) (*service.BiometricResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) LoginWithCredentials(ctx context.Context, identifier, secret string) (*service.LoginResult, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, identifier, secret)
	}
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) CompleteBiometric(ctx context.Context, token string, images [][]byte) (*service.BiometricResult, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, token, images)
	}
	return nil, errors.New("not implemented")
}

func testCookieManager() *security.CookieManager {
	return security.NewCookieManager("", false, "lax")
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body.String())
	}
	if env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return env
}

func TestAuthHandlerRegister(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		svc := &stubAuthService{registerFn: func(_ context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
			if in.Username != "ada" {
				t.Fatalf("username = %q", in.Username)
			}
			return &service.RegisterResult{UUID: "u-123", Accepted: true, Message: "ok"}, nil
		}}
		h := NewAuthHandler(svc, testCookieManager(), 15*time.Minute)

		body, _ := json.Marshal(map[string]string{"username": "ada", "email": "ada@example.com"})
		rec := httptest.NewRecorder()
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body)))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
		var out map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out["uuid"] != "u-123" {
			t.Fatalf("body = %v", out)
		}
	})

	t.Run("rejected registration carries uuid in details", func(t *testing.T) {
		svc := &stubAuthService{registerFn: func(context.Context, service.RegisterInput) (*service.RegisterResult, error) {
			return &service.RegisterResult{UUID: "u-123", Accepted: false, Message: "email is not valid"}, nil
		}}
		h := NewAuthHandler(svc, testCookieManager(), 15*time.Minute)

		rec := httptest.NewRecorder()
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(`{}`))))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		env := decodeError(t, rec)
		if env.Error.Code != "VALIDATION_FAILED" || env.Error.Details["uuid"] != "u-123" {
			t.Fatalf("envelope = %+v", env.Error)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		h := NewAuthHandler(&stubAuthService{}, testCookieManager(), 15*time.Minute)
		rec := httptest.NewRecorder()
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte("{not json"))))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Run("success sets assertion cookie", func(t *testing.T) {
		svc := &stubAuthService{loginFn: func(_ context.Context, identifier, secret string) (*service.LoginResult, error) {
			if identifier != "user@example.com" || secret != "pass-123456" {
				t.Fatalf("credentials forwarded wrong: %q %q", identifier, secret)
			}
			return &service.LoginResult{
				User:      &domain.User{UUID: "u-1", Username: "user"},
				Assertion: "signed-assertion",
				ExpiresAt: time.Now().Add(15 * time.Minute),
			}, nil
		}}
		h := NewAuthHandler(svc, testCookieManager(), 15*time.Minute)

		body, _ := json.Marshal(map[string]string{"email": "user@example.com", "password": "pass-123456"})
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == security.AssertionCookieName {
				cookie = c
			}
		}
		if cookie == nil || cookie.Value != "signed-assertion" || !cookie.HttpOnly {
			t.Fatalf("assertion cookie = %+v", cookie)
		}
		var out map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out["assertion"] != "signed-assertion" {
			t.Fatalf("body = %v", out)
		}
	})

	t.Run("invalid credentials", func(t *testing.T) {
		svc := &stubAuthService{loginFn: func(context.Context, string, string) (*service.LoginResult, error) {
			return nil, service.ErrInvalidCredentials
		}}
		h := NewAuthHandler(svc, testCookieManager(), 15*time.Minute)

		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"email":"x@example.com","password":"nope-1234"}`))))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
		if env := decodeError(t, rec); env.Error.Code != "UNAUTHORIZED" {
			t.Fatalf("code = %q", env.Error.Code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Fatal("no cookie on failed login")
		}
	})

	t.Run("internal error is not an auth failure", func(t *testing.T) {
		svc := &stubAuthService{loginFn: func(context.Context, string, string) (*service.LoginResult, error) {
			return nil, errors.New("db down")
		}}
		h := NewAuthHandler(svc, testCookieManager(), 15*time.Minute)

		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"email":"x@example.com","password":"nope-1234"}`))))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestAuthHandlerLogout(t *testing.T) {
	t.Run("clears cookie", func(t *testing.T) {
		h := NewAuthHandler(&stubAuthService{}, testCookieManager(), 15*time.Minute)
		claims := &security.AssertionClaims{Username: "user"}
		claims.Subject = "u-1"

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req = req.WithContext(context.WithValue(req.Context(), middleware.ClaimsContextKey, claims))
		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != security.AssertionCookieName || cookies[0].MaxAge != -1 {
			t.Fatalf("cookies = %+v", cookies)
		}
	})

	t.Run("missing claims", func(t *testing.T) {
		h := NewAuthHandler(&stubAuthService{}, testCookieManager(), 15*time.Minute)
		rec := httptest.NewRecorder()
		h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
