package handler

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
	"github.com/resale/backoffice/internal/infrastructure/cache"
	"github.com/resale/backoffice/internal/infrastructure/persistence"
	"github.com/resale/backoffice/internal/interfaces/http/dto"
	"github.com/resale/backoffice/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
}

type actorHeaders struct {
	name string
	dept string
}

var (
	warehouse = actorHeaders{"Ana", "WAREHOUSE"}
	finance   = actorHeaders{"Bruno", "FINANCE"}
	nobody    = actorHeaders{}
)

type api struct {
	engine *gin.Engine
	clock  *shared.FixedClock
}

func newAPI(t *testing.T) *api {
	t.Helper()
	middleware.SetupValidator()

	clock := shared.NewFixedClock(epoch)
	ids := shared.UUIDGenerator{}
	logger := zaptest.NewLogger(t)
	invoices := persistence.NewMemoryInvoiceRepository()

	svc := receivingapp.NewInvoiceService(invoices, receiving.NewWorkflow(receiving.DefaultPolicy(), ids, clock), clock, logger)
	store := cache.NewInMemoryIdempotencyStore(clock, 0)
	t.Cleanup(func() { _ = store.Close() })
	svc.SetIdempotencyStore(store, shared.DefaultIdempotencyConfig())
	credits := receivingapp.NewCreditNoteService(invoices, persistence.NewMemoryCreditNoteRepository(), receiving.NewCreditNoteIssuer(ids, clock), logger)

	ih := NewInvoiceHandler(svc)
	ch := NewCreditNoteHandler(credits)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Actor(), middleware.BodyLimit(1<<16))
	g := engine.Group("/api/v1")
	g.POST("/invoices", ih.CreateInvoice)
	g.GET("/invoices/:id", ih.GetInvoice)
	g.POST("/invoices/:id/products", ih.RegisterProducts)
	g.POST("/invoices/:id/inspections", ih.InspectProducts)
	g.POST("/invoices/:id/defects", ih.MarkDefective)
	g.POST("/invoices/:id/payments", ih.RegisterPayment)
	g.POST("/invoices/:id/reject", ih.Reject)
	g.POST("/invoices/:id/divergence", ih.FlagDivergence)
	g.POST("/invoices/:id/resubmit", ih.Resubmit)
	g.PATCH("/invoices/:id/notes", ih.Annotate)
	g.POST("/invoices/:id/alerts/:alert_id/resolve", ih.ResolveAlert)
	g.POST("/invoices/:id/credit-notes", ch.IssueCreditNote)
	g.GET("/invoices/:id/credit-notes", ch.ListCreditNotes)
	g.GET("/queues/:department", ih.ListQueue)

	return &api{engine: engine, clock: clock}
}

func (a *api) do(t *testing.T, method, path string, who actorHeaders, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who.name != "" {
		req.Header.Set(middleware.ActorNameHeader, who.name)
	}
	if who.dept != "" {
		req.Header.Set(middleware.ActorDepartmentHeader, who.dept)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := decode[json.RawMessage](t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
}

func invoicePath(id uuid.UUID, suffix string) string {
	return "/api/v1/invoices/" + id.String() + suffix
}

func (a *api) createInvoice(t *testing.T, terms string, total string, qty int) receivingapp.InvoiceResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/invoices", warehouse, map[string]any{
		"supplier_id":       uuid.NewString(),
		"invoice_number":    "NF-" + uuid.NewString()[:8],
		"payment_terms":     terms,
		"quantity_informed": qty,
		"total_value":       total,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[receivingapp.InvoiceResponse](t, w).Data
}

func (a *api) registerLines(t *testing.T, id uuid.UUID, n int, unitCost string) receivingapp.InvoiceResponse {
	t.Helper()
	lines := make([]map[string]any, n)
	for i := range lines {
		lines[i] = map[string]any{"category": "Smartphone", "brand": "Acme", "unit_cost": unitCost, "quantity": 1}
	}
	w := a.do(t, http.MethodPost, invoicePath(id, "/products"), warehouse, map[string]any{"lines": lines})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[receivingapp.InvoiceResponse](t, w).Data
}

func lineIDs(lines []receiving.ProductLine) []string {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ID.String()
	}
	return ids
}
