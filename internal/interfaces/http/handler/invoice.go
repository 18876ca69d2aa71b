package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	receivingapp "github.com/resale/backoffice/internal/application/receiving"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/interfaces/http/middleware"
)

// InvoiceHandler handles the supplier invoice workflow endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *receivingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *receivingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// CreateInvoice godoc
// @ID           createInvoice
// @Summary      Create a supplier invoice
// @Description  Registers a paper invoice. Warehouse only; the payment terms decide who owns it next.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Actor-Name        header string true  "Actor name"
// @Param        X-Actor-Department  header string true  "WAREHOUSE"
// @Param        Idempotency-Key     header string false "Replay protection key"
// @Param        request body receiving.CreateInvoiceRequest true "Invoice header"
// @Success      201 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req receivingapp.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req, middleware.GetActor(c), idempotencyKey(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetInvoice godoc
// @ID           getInvoice
// @Summary      Get an invoice
// @Description  Returns the invoice with its lines, payments, timeline and alerts as of now
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// ListQueue godoc
// @ID           listQueue
// @Summary      List a department queue
// @Description  Invoices currently owned by the department, oldest first
// @Tags         queues
// @Produce      json
// @Param        department path string true "warehouse or finance"
// @Success      200 {object} APIResponse[[]receiving.QueueItemResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /queues/{department} [get]
func (h *InvoiceHandler) ListQueue(c *gin.Context) {
	dept := receiving.Department(strings.ToUpper(c.Param("department")))

	items, err := h.invoiceService.ListQueue(c.Request.Context(), dept)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, items)
}

// RegisterProducts godoc
// @ID           registerInvoiceProducts
// @Summary      Register received products
// @Description  Adds a batch of physically received lines. Warehouse only.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body receiving.RegisterProductsRequest true "Lines"
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/products [post]
func (h *InvoiceHandler) RegisterProducts(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req receivingapp.RegisterProductsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.RegisterProducts(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// InspectProducts godoc
// @ID           inspectInvoiceProducts
// @Summary      Inspect received lines
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body receiving.InspectProductsRequest true "Inspected and defective line IDs"
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/inspections [post]
func (h *InvoiceHandler) InspectProducts(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req receivingapp.InspectProductsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.InspectProducts(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// MarkDefective godoc
// @ID           markInvoiceDefects
// @Summary      Mark inspected lines defective
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body receiving.LineSelectionRequest true "Line IDs"
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /invoices/{id}/defects [post]
func (h *InvoiceHandler) MarkDefective(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req receivingapp.LineSelectionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.MarkDefective(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// RegisterPayment godoc
// @ID           registerInvoicePayment
// @Summary      Register a payment
// @Description  Finance only. The amount may not exceed the outstanding balance.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body receiving.RegisterPaymentRequest true "Payment"
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/payments [post]
func (h *InvoiceHandler) RegisterPayment(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req receivingapp.RegisterPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.RegisterPayment(c.Request.Context(), id, req, middleware.GetActor(c), idempotencyKey(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Reject godoc
// @ID           rejectInvoice
// @Summary      Reject an invoice back to the warehouse
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body receiving.DisputeRequest true "Reason"
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/reject [post]
func (h *InvoiceHandler) Reject(c *gin.Context) {
	h.dispute(c, h.invoiceService.Reject)
}

// FlagDivergence godoc
// @ID           flagInvoiceDivergence
// @Summary      Flag a divergence
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body receiving.DisputeRequest true "Reason"
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/divergence [post]
func (h *InvoiceHandler) FlagDivergence(c *gin.Context) {
	h.dispute(c, h.invoiceService.FlagDivergence)
}

type disputeFunc func(ctx context.Context, id uuid.UUID, req receivingapp.DisputeRequest, actor receiving.Actor) (*receivingapp.InvoiceResponse, error)

func (h *InvoiceHandler) dispute(c *gin.Context, fn disputeFunc) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req receivingapp.DisputeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := fn(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Resubmit godoc
// @ID           resubmitInvoice
// @Summary      Resubmit a divergent invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body receiving.ResubmitRequest false "Note"
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/resubmit [post]
func (h *InvoiceHandler) Resubmit(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req receivingapp.ResubmitRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.Resubmit(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Annotate godoc
// @ID           annotateInvoice
// @Summary      Edit notes and the urgent flag
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body receiving.AnnotateRequest true "Notes"
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /invoices/{id}/notes [patch]
func (h *InvoiceHandler) Annotate(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req receivingapp.AnnotateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.Annotate(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// ResolveAlert godoc
// @ID           resolveInvoiceAlert
// @Summary      Resolve an alert
// @Tags         invoices
// @Produce      json
// @Param        id       path string true "Invoice ID" format(uuid)
// @Param        alert_id path string true "Alert ID" format(uuid)
// @Success      200 {object} APIResponse[receiving.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id}/alerts/{alert_id}/resolve [post]
func (h *InvoiceHandler) ResolveAlert(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	alertID, ok := h.ParseUUIDParam(c, "alert_id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.ResolveAlert(c.Request.Context(), id, alertID, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))
}
