package back

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"MarketMind/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, data interface{}, err error) Response {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	Result(c, data, err)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestResult(t *testing.T) {
	resp := run(t, map[string]int{"n": 1}, nil)
	assert.Equal(t, xerr.OK, resp.Code)
	assert.Equal(t, map[string]interface{}{"n": float64(1)}, resp.Data)

	resp = run(t, nil, xerr.New(xerr.Conflict, "busy"))
	assert.Equal(t, xerr.Conflict, resp.Code)
	assert.Equal(t, "busy", resp.Message)

	resp = run(t, nil, fmt.Errorf("wrapped: %w", xerr.ErrNotFound))
	assert.Equal(t, xerr.NotFound, resp.Code)

	resp = run(t, nil, xerr.Wrap(xerr.ServiceUnavailable, "down", errors.New("dial tcp")))
	assert.Equal(t, xerr.ServiceUnavailable, resp.Code)
	assert.Equal(t, "down", resp.Message)

	resp = run(t, nil, errors.New("secret db dsn in message"))
	assert.Equal(t, xerr.InternalServerError, resp.Code)
	assert.Equal(t, xerr.ErrServerError.Message, resp.Message)
	assert.Nil(t, resp.Data)
}
