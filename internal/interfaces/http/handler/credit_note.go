package handler

import (
	"github.com/gin-gonic/gin"
	receivingapp "github.com/resale/backoffice/internal/application/receiving"
)

// CreditNoteHandler handles credit notes for defective prepaid lines
type CreditNoteHandler struct {
	BaseHandler
	creditNoteService *receivingapp.CreditNoteService
}

// NewCreditNoteHandler creates a new CreditNoteHandler
func NewCreditNoteHandler(creditNoteService *receivingapp.CreditNoteService) *CreditNoteHandler {
	return &CreditNoteHandler{creditNoteService: creditNoteService}
}

// IssueCreditNote godoc
// @ID           issueCreditNote
// @Summary      Issue a credit note for defective lines
// @Description  Only lines of a fully prepaid invoice that were inspected and marked defective can be credited, each once.
// @Tags         credit-notes
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body receiving.IssueCreditRequest true "Defective lines"
// @Success      201 {object} APIResponse[receiving.CreditNoteResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /invoices/{id}/credit-notes [post]
func (h *CreditNoteHandler) IssueCreditNote(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req receivingapp.IssueCreditRequest
	if !h.BindJSON(c, &req) {
		return
	}

	note, err := h.creditNoteService.IssueCreditForDefects(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, note)
}

// ListCreditNotes godoc
// @ID           listCreditNotes
// @Summary      List the credit notes of an invoice
// @Tags         credit-notes
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[[]receiving.CreditNoteResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id}/credit-notes [get]
func (h *CreditNoteHandler) ListCreditNotes(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	notes, err := h.creditNoteService.ListCreditNotes(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, notes)
}
