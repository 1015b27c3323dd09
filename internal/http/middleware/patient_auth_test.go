package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signPatientToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestPatientJWTAcceptsValidToken(t *testing.T) {
	var gotID int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := PatientIDFromContext(r.Context())
		if !ok {
			t.Fatalf("expected patient id in context")
		}
		gotID = id
		w.WriteHeader(http.StatusOK)
	})

	mw := PatientJWT("test-secret")
	req := httptest.NewRequest(http.MethodGet, "/booking/sessions/abc", nil)
	req.Header.Set("Authorization", "Bearer "+signPatientToken(t, "test-secret", "42"))
	rec := httptest.NewRecorder()

	mw(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if gotID != 42 {
		t.Fatalf("expected patient id 42, got %d", gotID)
	}
}

func TestPatientJWTRejectsMissingHeader(t *testing.T) {
	mw := PatientJWT("test-secret")
	req := httptest.NewRequest(http.MethodGet, "/booking/sessions", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestPatientJWTRejectsWrongSecret(t *testing.T) {
	mw := PatientJWT("test-secret")
	req := httptest.NewRequest(http.MethodGet, "/booking/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+signPatientToken(t, "other-secret", "42"))
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestPatientJWTRejectsNonNumericSubject(t *testing.T) {
	mw := PatientJWT("test-secret")
	req := httptest.NewRequest(http.MethodGet, "/booking/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+signPatientToken(t, "test-secret", "not-a-number"))
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestPatientJWTRejectsExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	mw := PatientJWT("test-secret")
	req := httptest.NewRequest(http.MethodGet, "/booking/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}
