package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/openbooks/backend/internal/application/ledger"
)

// DocumentHandler handles transactional document API endpoints
type DocumentHandler struct {
	BaseHandler
	documentService *ledgerapp.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService *ledgerapp.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

// CancelDocumentRequest represents a request to cancel a document
// @Description Request body for cancelling a document
type CancelDocumentRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500" example:"Issued in error"`
}

// Create godoc
// @Summary      Create a new document
// @Description  Create a new draft document with optional line items
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateDocumentRequest true "Document creation request"
// @Success      201 {object} dto.Response{data=ledgerapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.CreateDocument(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, doc)
}

// GetByID godoc
// @Summary      Get document by ID
// @Description  Retrieve a document by its ID
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	doc, err := h.documentService.GetDocumentByID(c.Request.Context(), documentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// GetByNumber godoc
// @Summary      Get document by document number
// @Description  Retrieve a document by its human-readable number
// @Tags         documents
// @Produce      json
// @Param        document_number path string true "Document Number" example:"SO-20260115-00001"
// @Success      200 {object} dto.Response{data=ledgerapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents/number/{document_number} [get]
func (h *DocumentHandler) GetByNumber(c *gin.Context) {
	documentNumber := c.Param("document_number")
	if documentNumber == "" {
		h.BadRequest(c, "Document number is required")
		return
	}

	doc, err := h.documentService.GetDocumentByNumber(c.Request.Context(), documentNumber)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// List godoc
// @Summary      List documents
// @Description  Retrieve a paginated list of documents with optional filtering
// @Tags         documents
// @Produce      json
// @Param        search query string false "Search term (document number, counterparty name)"
// @Param        kind query string false "Document kind" Enums(SALES_ORDER, PURCHASE_INVOICE, SALES_RETURN, PURCHASE_RETURN)
// @Param        status query string false "Document status" Enums(DRAFT, OPEN, PARTIALLY_PAID, PAID, CANCELLED)
// @Param        counterparty_id query string false "Counterparty ID" format(uuid)
// @Param        overdue query bool false "Only documents past their due date"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]ledgerapp.DocumentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	var filter ledgerapp.DocumentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	docs, total, err := h.documentService.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, docs, total, filter.Page, filter.PageSize)
}

// ListAllocatable godoc
// @Summary      List allocatable documents
// @Description  Retrieve the open and partially paid documents a new payment for the counterparty may be allocated against
// @Tags         documents
// @Produce      json
// @Param        counterparty_id query string true "Counterparty ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]ledgerapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents/allocatable [get]
func (h *DocumentHandler) ListAllocatable(c *gin.Context) {
	counterpartyID, err := uuid.Parse(c.Query("counterparty_id"))
	if err != nil {
		h.BadRequest(c, "Invalid counterparty ID format")
		return
	}

	docs, err := h.documentService.ListAllocatableDocuments(c.Request.Context(), counterpartyID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, docs)
}

// AddItem godoc
// @Summary      Add a line item
// @Description  Add a line item to a draft document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body ledgerapp.LineItemInput true "Line item"
// @Success      200 {object} dto.Response{data=ledgerapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents/{id}/items [post]
func (h *DocumentHandler) AddItem(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	var input ledgerapp.LineItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.AddItem(c.Request.Context(), documentID, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// UpdateItem godoc
// @Summary      Update a line item
// @Description  Update quantity or unit price of a line item on a draft document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        item_id path string true "Line Item ID" format(uuid)
// @Param        request body ledgerapp.UpdateItemRequest true "Item changes"
// @Success      200 {object} dto.Response{data=ledgerapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents/{id}/items/{item_id} [put]
func (h *DocumentHandler) UpdateItem(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req ledgerapp.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.UpdateItem(c.Request.Context(), documentID, itemID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// RemoveItem godoc
// @Summary      Remove a line item
// @Description  Remove a line item from a draft document
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        item_id path string true "Line Item ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents/{id}/items/{item_id} [delete]
func (h *DocumentHandler) RemoveItem(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	doc, err := h.documentService.RemoveItem(c.Request.Context(), documentID, itemID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// Finalize godoc
// @Summary      Finalize a document
// @Description  Transition a draft document to open, locking its line items and totals
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents/{id}/finalize [post]
func (h *DocumentHandler) Finalize(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	doc, err := h.documentService.FinalizeDocument(c.Request.Context(), documentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// Cancel godoc
// @Summary      Cancel a document
// @Description  Cancel a document that has no payments applied
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body CancelDocumentRequest true "Cancellation reason"
// @Success      200 {object} dto.Response{data=ledgerapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents/{id}/cancel [post]
func (h *DocumentHandler) Cancel(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	var req CancelDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.CancelDocument(c.Request.Context(), documentID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// Delete godoc
// @Summary      Delete a draft document
// @Description  Permanently delete a document that was never finalized
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	if err := h.documentService.DeleteDraft(c.Request.Context(), documentID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
