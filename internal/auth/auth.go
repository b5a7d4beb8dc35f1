package auth

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ZanzyTHEbar/campus-pulse/internal/database"
	"github.com/ZanzyTHEbar/campus-pulse/internal/errors"
)

// Context keys set by Middleware
const (
	ContextUserID  = "user_id"
	ContextIsAdmin = "is_admin"
)

// Claims carried by session tokens
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// IdentityResolver loads the account behind a verified token
type IdentityResolver interface {
	GetUser(ctx context.Context, userID int64) (*database.User, error)
}

// IssueToken signs an HS256 session token for userID
func IssueToken(secret []byte, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ParseToken verifies signature and expiry and returns the claims
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Middleware authenticates Bearer tokens and resolves the caller from the store,
// so admin changes apply without reissuing tokens.
func Middleware(secret []byte, users IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			errors.Respond(c, errors.NewUnauthenticatedError("Authorization header is required"))
			return
		}

		scheme, tokenString, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			errors.Respond(c, errors.NewUnauthenticatedError("Authorization header must be in the format: Bearer {token}"))
			return
		}

		claims, err := ParseToken(secret, strings.TrimSpace(tokenString))
		if err != nil {
			errors.Respond(c, errors.NewUnauthenticatedError("Invalid or expired token"))
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if stdErrors.Is(err, database.ErrNotFound) {
				errors.Respond(c, errors.NewUnauthenticatedError("Unknown user"))
				return
			}
			errors.Respond(c, err)
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextIsAdmin, user.IsAdmin)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin flag
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			errors.Respond(c, errors.NewPermissionError("Admin access required"))
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin allows admins, or callers whose id equals the path parameter
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || target <= 0 {
			errors.Respond(c, errors.NewValidationError("Invalid user id", param+"="+c.Param(param)))
			return
		}
		if !c.GetBool(ContextIsAdmin) && c.GetInt64(ContextUserID) != target {
			errors.Respond(c, errors.NewPermissionError("Access to another user's data is not allowed"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated caller id
func CurrentUser(c *gin.Context) (int64, bool) {
	id := c.GetInt64(ContextUserID)
	return id, id > 0
}
