package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	receivingapp "github.com/resale/backoffice/internal/application/receiving"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/config"
	"github.com/resale/backoffice/internal/infrastructure/persistence"
	"github.com/resale/backoffice/internal/interfaces/http/handler"
	"github.com/resale/backoffice/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	logger := zaptest.NewLogger(t)
	clock := shared.NewFixedClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	ids := shared.UUIDGenerator{}
	invoices := persistence.NewMemoryInvoiceRepository()

	svc := receivingapp.NewInvoiceService(invoices, receiving.NewWorkflow(receiving.DefaultPolicy(), ids, clock), clock, logger)
	credits := receivingapp.NewCreditNoteService(invoices, persistence.NewMemoryCreditNoteRepository(), receiving.NewCreditNoteIssuer(ids, clock), logger)

	return NewEngine(EngineConfig{
		HTTP: config.HTTPConfig{
			MaxBodySize:      1 << 16,
			CORSAllowOrigins: []string{"https://backoffice.example.com"},
		},
		ServiceName: "backoffice-test",
		Logger:      logger,
		Invoices:    handler.NewInvoiceHandler(svc),
		CreditNotes: handler.NewCreditNoteHandler(credits),
		System:      handler.NewSystemHandler("backoffice", "test", nil),
	})
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewEngine_Health(t *testing.T) {
	engine := newTestEngine(t)

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "in-memory")
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestNewEngine_SystemInfo(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil)
	req.Header.Set(middleware.RequestIDHeader, "trace-me")
	w := serve(engine, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trace-me", w.Header().Get(middleware.RequestIDHeader))
	assert.Contains(t, w.Body.String(), `"version":"test"`)
}

func TestNewEngine_InvoiceLifecycle(t *testing.T) {
	engine := newTestEngine(t)

	body, err := json.Marshal(map[string]any{
		"supplier_id":       uuid.NewString(),
		"invoice_number":    "NF-1001",
		"payment_terms":     "POST_PAID",
		"quantity_informed": 2,
		"total_value":       "200",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorNameHeader, "Ana")
	req.Header.Set(middleware.ActorDepartmentHeader, "warehouse")
	w := serve(engine, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data receivingapp.InvoiceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "WAREHOUSE", created.Data.CurrentOwner)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+created.Data.ID.String(), nil)
	w = serve(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/queues/warehouse", nil)
	w = serve(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "NF-1001")
}

func TestNewEngine_BodyLimit(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(make([]byte, 1<<17)))
	req.Header.Set("Content-Type", "application/json")
	w := serve(engine, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNewEngine_CORSPreflight(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/invoices", nil)
	req.Header.Set("Origin", "https://backoffice.example.com")
	w := serve(engine, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://backoffice.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
}

func TestNewEngine_UnknownRoute(t *testing.T) {
	engine := newTestEngine(t)

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
