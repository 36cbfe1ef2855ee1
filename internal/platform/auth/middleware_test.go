package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func invoke(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, context.Context, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var captured context.Context
	err := mw(func(c echo.Context) error {
		captured = c.Request().Context()
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, captured, err
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	hospitalID := uuid.New()
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:       RoleAdmin,
		HospitalID: hospitalID.String(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, ctx, err := invoke(JWTMiddleware(JWTConfig{SigningKey: testKey}), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if UserIDFromContext(ctx) != userID {
		t.Error("user id not propagated")
	}
	if RoleFromContext(ctx) != RoleAdmin {
		t.Error("role not propagated")
	}
	if HospitalIDFromContext(ctx) != hospitalID {
		t.Error("hospital id not propagated")
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, _, err := invoke(JWTMiddleware(JWTConfig{SigningKey: testKey}), req)
	if err == nil {
		t.Fatal("expected error for missing header")
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RolePatient,
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, _, err := invoke(JWTMiddleware(JWTConfig{SigningKey: []byte("other-key")}), req)
	if err == nil {
		t.Fatal("expected error for wrong signing key")
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Role: RolePatient,
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, _, err := invoke(JWTMiddleware(JWTConfig{SigningKey: testKey}), req)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestRequireRole_Match(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserRoleKey, RolePatient))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequireRole(RolePatient)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserRoleKey, RoleAdmin))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequireRole(RolePatient)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserRoleKey, RolePatient))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequireRole(RoleAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	if err == nil {
		t.Fatal("expected forbidden error")
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ctx, err := invoke(DevAuthMiddleware(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if RoleFromContext(ctx) != RoleAdmin {
		t.Error("dev auth should grant admin")
	}
	if UserIDFromContext(ctx) == uuid.Nil {
		t.Error("dev auth should set a user id")
	}
}
