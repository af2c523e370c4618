// Package middleware holds the gin middleware shared by the HTTP API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/justsplit/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated account ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated account's email.
	EmailKey contextKey = "email"
)

// tokenQueryParam carries the token for clients that cannot set headers,
// such as EventSource.
const tokenQueryParam = "access_token"

// GetUserID extracts the account ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the account email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// WithAccount returns ctx carrying the account identity.
func WithAccount(ctx context.Context, id, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id)
	return context.WithValue(ctx, EmailKey, email)
}

// RequireAuth returns a middleware that validates JWT tokens and requires
// authentication. The account ID and email are stored on both the gin
// context and the request context.
func RequireAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		claims, err := jwtManager.Validate(token)
		if err != nil {
			abortUnauthorized(c, auth.ErrInvalidToken)
			return
		}

		setAccount(c, claims.AccountID, claims.Email)
		c.Next()
	}
}

// StaticAccount authenticates every request as the given account. It is
// used when authentication is disabled.
func StaticAccount(id, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAccount(c, id, email)
		c.Next()
	}
}

func setAccount(c *gin.Context, id, email string) {
	c.Set(string(UserIDKey), id)
	c.Set(string(EmailKey), email)
	c.Request = c.Request.WithContext(WithAccount(c.Request.Context(), id, email))
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query(tokenQueryParam); token != "" {
			return token, nil
		}
		return "", auth.ErrMissingToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
}
