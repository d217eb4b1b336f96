package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/openbooks/backend/internal/application/ledger"
)

// PaymentHandler handles payment and allocation API endpoints
type PaymentHandler struct {
	BaseHandler
	allocationService *ledgerapp.AllocationService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(allocationService *ledgerapp.AllocationService) *PaymentHandler {
	return &PaymentHandler{
		allocationService: allocationService,
	}
}

// ReversePaymentRequest represents a request to reverse a payment
// @Description Request body for reversing a payment
type ReversePaymentRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500" example:"Bounced cheque"`
}

// Apply godoc
// @Summary      Apply a payment
// @Description  Record a payment and allocate it across one or more open documents atomically
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.ApplyPaymentRequest true "Payment application request"
// @Success      201 {object} dto.Response{data=ledgerapp.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/payments [post]
func (h *PaymentHandler) Apply(c *gin.Context) {
	var req ledgerapp.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.allocationService.ApplyPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, payment)
}

// GetByID godoc
// @Summary      Get payment by ID
// @Description  Retrieve a payment with its allocations
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.allocationService.GetPaymentByID(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// List godoc
// @Summary      List payments
// @Description  Retrieve a paginated list of payments with optional filtering
// @Tags         payments
// @Produce      json
// @Param        direction query string false "Payment direction" Enums(INCOMING, OUTGOING)
// @Param        method query string false "Payment method"
// @Param        status query string false "Payment status" Enums(ACTIVE, REVERSED)
// @Param        counterparty_id query string false "Counterparty ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]ledgerapp.PaymentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var filter ledgerapp.PaymentListFilter
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

	payments, total, err := h.allocationService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, payments, total, filter.Page, filter.PageSize)
}

// Reverse godoc
// @Summary      Reverse a payment
// @Description  Undo all allocations of a payment and mark it reversed
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body ReversePaymentRequest true "Reversal reason"
// @Success      200 {object} dto.Response{data=ledgerapp.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/payments/{id}/reverse [post]
func (h *PaymentHandler) Reverse(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req ReversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.allocationService.ReversePayment(c.Request.Context(), paymentID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}
