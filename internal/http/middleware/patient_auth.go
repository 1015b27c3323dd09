package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const patientIDKey contextKey = "patientID"

// PatientJWT enforces an HMAC-signed JWT issued by the portal's login
// service. The subject claim carries the numeric patient ID.
func PatientJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "patient auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			patientID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil || patientID <= 0 {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), patientIDKey, patientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PatientIDFromContext returns the authenticated patient ID if present.
func PatientIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(patientIDKey).(int64)
	return id, ok
}
