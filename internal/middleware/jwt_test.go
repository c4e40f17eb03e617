package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/utils"
)

const testSecret = "test-secret"

func protectedEcho(roles ...string) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1")
	g.Use(JWTAuth(testSecret))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"member_id": c.Get("member_id"), "role": c.Get("role")})
	})
	return e
}

func doGet(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthRejectsMissingAndGarbageTokens(t *testing.T) {
	e := protectedEcho()

	assert.Equal(t, http.StatusUnauthorized, doGet(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(e, "not-a-jwt").Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	e := protectedEcho()

	at, err := utils.NewAccessToken("another-secret", 7, "MEMBER", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doGet(e, at.Token).Code)
}

func TestJWTAuthInjectsClaims(t *testing.T) {
	e := protectedEcho()

	at, err := utils.NewAccessToken(testSecret, 7, "MEMBER", 5)
	require.NoError(t, err)
	rec := doGet(e, at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"MEMBER"`)
}

func TestRequireRoleGatesAdminEndpoints(t *testing.T) {
	e := protectedEcho("ADMIN")

	member, err := utils.NewAccessToken(testSecret, 7, "MEMBER", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, doGet(e, member.Token).Code)

	admin, err := utils.NewAccessToken(testSecret, 1, "ADMIN", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, doGet(e, admin.Token).Code)
}
