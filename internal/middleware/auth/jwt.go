package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Operator is the caller authenticated by an admin token.
type Operator struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

type contextKey string

const operatorContextKey contextKey = "authenticated_operator"

// JWTConfig holds the configuration for the admin JWT middleware.
type JWTConfig struct {
	Secret string
	Logger *zap.Logger
	// RequiredRole rejects tokens whose role claim differs. Empty accepts any role.
	RequiredRole string
}

// JWTMiddleware validates HS256 bearer tokens signed with the configured secret.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			// Extract token from Authorization header
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			// Check Bearer prefix
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			// Parse and validate token, HS256 only
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.Secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

			if err != nil || !token.Valid {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired token",
					"code":  "INVALID_TOKEN",
				})
			}

			subject, _ := claims.GetSubject()
			email, _ := claims["email"].(string)
			role, _ := claims["role"].(string)

			if config.RequiredRole != "" && role != config.RequiredRole {
				config.Logger.Warn("Insufficient role",
					zap.String("subject", subject),
					zap.String("role", role),
					zap.String("path", path))
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "Insufficient permissions",
					"code":  "FORBIDDEN",
				})
			}

			// Store operator in request context
			operator := &Operator{Subject: subject, Email: email, Role: role}
			ctx := context.WithValue(c.Request().Context(), operatorContextKey, operator)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("operator", subject)

			config.Logger.Debug("Operator authenticated",
				zap.String("subject", subject),
				zap.String("path", path))

			return next(c)
		}
	}
}

// GetOperatorFromContext extracts the authenticated operator from the request context.
func GetOperatorFromContext(c echo.Context) (*Operator, error) {
	operator, ok := c.Request().Context().Value(operatorContextKey).(*Operator)
	if !ok || operator == nil {
		return nil, fmt.Errorf("no authenticated operator found in context")
	}
	return operator, nil
}
