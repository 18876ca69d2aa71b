package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type ctxKey struct{}

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"/health"}, cfg.SkipPaths)
}

func TestProfilingMiddleware(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProfilingConfig
		path string
	}{
		{"disabled", ProfilingConfig{Enabled: false}, "/api/v1/invoices/1/payments"},
		{"enabled", DefaultProfilingConfig(), "/api/v1/invoices/1/payments"},
		{"skipped path", DefaultProfilingConfig(), "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			r := gin.New()
			r.Use(Actor(), ProfilingWithConfig(tt.cfg))
			handler := func(c *gin.Context) {
				handlerCalled = true
				c.Status(http.StatusAccepted)
			}
			r.POST("/api/v1/invoices/:id/payments", handler)
			r.POST("/health", handler)

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			req.Header.Set(ActorDepartmentHeader, "FINANCE")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusAccepted, w.Code)
			assert.True(t, handlerCalled)
		})
	}
}

func TestProfilingMiddleware_ContextPreserved(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, "kept"))
		c.Next()
	})
	r.Use(Profiling())

	var got any
	r.GET("/api/v1/queues/:department", func(c *gin.Context) {
		got = c.Request.Context().Value(ctxKey{})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/queues/WAREHOUSE", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kept", got)
}

func TestProfilingLabels(t *testing.T) {
	var labels map[string]string
	r := gin.New()
	r.Use(Actor())
	r.POST("/api/v1/invoices/:id/inspections", func(c *gin.Context) {
		labels = profilingLabels(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/9/inspections", nil)
	req.Header.Set(ActorDepartmentHeader, "warehouse")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "inspections", labels["operation"])
	assert.Equal(t, "WAREHOUSE", labels["department"])
	assert.Equal(t, "/api/v1/invoices/:id/inspections", labels["route"])
	assert.Equal(t, http.MethodPost, labels["method"])
}

func TestOperationFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/invoices", "invoices"},
		{"/api/v1/invoices/:id", "invoices"},
		{"/api/v1/invoices/:id/payments", "payments"},
		{"/api/v1/invoices/:id/alerts/:alertId/resolve", "resolve"},
		{"/api/v2/queues/:department", "queues"},
		{"/health", "health"},
		{"", ""},
		{"/api/v1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, operationFromRoute(tt.route))
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vx"))
	assert.False(t, isVersionSegment("invoices"))
}
