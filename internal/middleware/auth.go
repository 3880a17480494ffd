package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quote-assistant-backend/internal/models"
)

type contextKey string

const AdminSubjectKey contextKey = "admin_subject"

const adminRole = "admin"

// JWTAuth guards administrative routes with HS256 bearer tokens.
type JWTAuth struct {
	Secret []byte
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret)}
}

// GenerateAdminToken creates a token that may update the assistant rules.
func (j *JWTAuth) GenerateAdminToken(subject string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Middleware validates the bearer token and attaches the admin subject to context
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization format", r)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return j.Secret, nil
		})
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				writeError(w, http.StatusUnauthorized, "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "Invalid token", r)
			}
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			writeError(w, http.StatusUnauthorized, "Invalid token claims", r)
			return
		}

		if role, _ := claims["role"].(string); role != adminRole {
			writeError(w, http.StatusForbidden, "Admin role required", r)
			return
		}

		subject, _ := claims["sub"].(string)
		ctx := context.WithValue(r.Context(), AdminSubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAdminSubject extracts the authenticated admin from request context
func GetAdminSubject(ctx context.Context) string {
	sub, _ := ctx.Value(AdminSubjectKey).(string)
	return sub
}

func writeError(w http.ResponseWriter, status int, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:     message,
		RequestID: GetRequestID(r.Context()),
	})
}
