package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/contracts-service/internal/model"
)

type stubParser struct {
	principal model.Principal
	err       error
}

func (p stubParser) Parse(string) (model.Principal, error) {
	return p.principal, p.err
}

func newRouter(parser TokenParser) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(parser))
	router.GET("/me", func(c *gin.Context) {
		principal, ok := MustPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, string(principal.Role))
	})
	return router
}

func TestAuth(t *testing.T) {
	principal := model.Principal{UserID: uuid.New(), Role: model.UserRoleViewer}

	tests := []struct {
		name   string
		header string
		parser stubParser
		status int
	}{
		{"valid", "Bearer token", stubParser{principal: principal}, http.StatusOK},
		{"missing header", "", stubParser{principal: principal}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubParser{principal: principal}, http.StatusUnauthorized},
		{"rejected token", "Bearer token", stubParser{err: errors.New("bad")}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			newRouter(tt.parser).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "viewer", rec.Body.String())
			}
		})
	}
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(RequestLogger(zerolog.New(&buf)))
			router.GET("/status", func(c *gin.Context) {
				c.Status(tt.status)
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
			require.Equal(t, tt.status, rec.Code)

			lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
			require.Len(t, lines, 1)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(lines[0], &entry))
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, "/status", entry["path"])
		})
	}
}
