package jwt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"MarketMind/internal/config"
	"MarketMind/pkg/back"
	"MarketMind/pkg/util/myjwt"
	"MarketMind/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c := &config.Config{}
	c.JwtConfig.Key = "middleware-key"
	c.ApplyDefaults()
	config.SetConfig(c)

	r := gin.New()
	r.GET("/me", Auth(), func(c *gin.Context) {
		claims := myjwt.ClaimsFromContext(c.Request.Context())
		back.Success(c, gin.H{"user_id": UserID(c), "ctx_user_id": claims.UserID})
	})
	return r
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) back.Response {
	t.Helper()
	var resp back.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthAcceptsBearerAndCookie(t *testing.T) {
	r := newAuthRouter(t)
	token, _, err := myjwt.GenerateToken(42, "wile")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	resp := decode(t, rec)
	assert.Equal(t, xerr.OK, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(42), data["user_id"])
	assert.Equal(t, float64(42), data["ctx_user_id"])

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, xerr.OK, decode(t, rec).Code)
}

func TestAuthRejectsMissingOrBadToken(t *testing.T) {
	r := newAuthRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, xerr.Unauthorized, decode(t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, xerr.Unauthorized, decode(t, rec).Code)
}
