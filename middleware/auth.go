package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	AdminKey         contextKey = "admin"
	SessionIDKey     contextKey = "session_id"
	UpstreamTokenKey contextKey = "upstream_token"
)

const adminIssuer = "roadside-admin"

// Claims are carried by admin session tokens.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UpstreamTokens resolves the directory bearer token stored for a session.
type UpstreamTokens interface {
	Get(ctx context.Context, sessionID string) (string, error)
}

// IssueToken signs an admin session token.
func IssueToken(secret, subject, sessionID string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    adminIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies an admin session token.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminIssuer),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" || claims.SessionID == "" {
		return nil, errors.New("invalid admin token")
	}
	return claims, nil
}

// Auth resolves the admin identity from the Authorization header. Requests
// without a valid token pass through anonymous; RequireAdmin enforces.
func Auth(secret string, tokens UpstreamTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), AdminKey, claims.Subject)
			ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID)
			if tokens != nil {
				if upstream, err := tokens.Get(ctx, claims.SessionID); err == nil && upstream != "" {
					ctx = WithUpstreamToken(ctx, upstream)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests that Auth did not authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAdmin(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":       "unauthorized",
					"message":    "admin authentication required",
					"request_id": GetRequestID(r.Context()),
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetAdmin(ctx context.Context) string {
	v, _ := ctx.Value(AdminKey).(string)
	return v
}

func GetSessionID(ctx context.Context) string {
	v, _ := ctx.Value(SessionIDKey).(string)
	return v
}

// WithUpstreamToken attaches the directory bearer token to ctx; the
// downstream client sends it on every call made with that ctx.
func WithUpstreamToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, UpstreamTokenKey, token)
}

func GetUpstreamToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(UpstreamTokenKey).(string)
	return v
}
