package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func createJWT(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	tokenString, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return tokenString
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "ops-1",
		"email": "ops@example.com",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
}

func runMiddleware(t *testing.T, config JWTConfig, path, authHeader string, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	handler := JWTMiddleware(config)(next)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()

	err := handler(e.NewContext(req, rec))
	assert.NoError(t, err)
	return rec
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func TestJWTMiddleware_SuccessfulAuthentication(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Logger: zap.NewNop(), RequiredRole: "admin"}
	token := createJWT(t, "test-secret", jwt.SigningMethodHS256, validClaims("admin"))

	rec := runMiddleware(t, config, "/cancel/a%40b.co", "Bearer "+token, func(c echo.Context) error {
		operator, err := GetOperatorFromContext(c)
		assert.NoError(t, err)
		assert.Equal(t, "ops-1", operator.Subject)
		assert.Equal(t, "ops@example.com", operator.Email)
		assert.Equal(t, "admin", operator.Role)
		return okHandler(c)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_MissingAuthorizationHeader(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Logger: zap.NewNop()}

	rec := runMiddleware(t, config, "/cancel/a%40b.co", "", okHandler)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_AUTH_HEADER")
}

func TestJWTMiddleware_InvalidHeaderFormat(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Logger: zap.NewNop()}

	rec := runMiddleware(t, config, "/cancel/x", "Token abc", okHandler)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_AUTH_FORMAT")
}

func TestJWTMiddleware_RejectsBadTokens(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Logger: zap.NewNop()}

	expired := validClaims("admin")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", createJWT(t, "other-secret", jwt.SigningMethodHS256, validClaims("admin"))},
		{"expired", createJWT(t, "test-secret", jwt.SigningMethodHS256, expired)},
		{"wrong algorithm", createJWT(t, "test-secret", jwt.SigningMethodHS512, validClaims("admin"))},
		{"garbage", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runMiddleware(t, config, "/cancel/x", "Bearer "+tt.token, okHandler)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
		})
	}
}

func TestJWTMiddleware_RequiredRole(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Logger: zap.NewNop(), RequiredRole: "admin"}
	token := createJWT(t, "test-secret", jwt.SigningMethodHS256, validClaims("viewer"))

	rec := runMiddleware(t, config, "/cancel/x", "Bearer "+token, okHandler)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestGetOperatorFromContext_Unauthenticated(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/cancel/x", nil), httptest.NewRecorder())

	operator, err := GetOperatorFromContext(c)
	assert.Error(t, err)
	assert.Nil(t, operator)
}
