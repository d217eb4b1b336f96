package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/openbooks/backend/internal/application/ledger"
	"github.com/openbooks/backend/internal/interfaces/http/dto"
)

// AccountHandler handles ledger account API endpoints
type AccountHandler struct {
	BaseHandler
	accountService *ledgerapp.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *ledgerapp.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// List godoc
// @Summary      List ledger accounts
// @Description  Retrieve a paginated list of per-counterparty ledger accounts
// @Tags         accounts
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]ledgerapp.AccountResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Set defaults
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	accounts, total, err := h.accountService.ListAccounts(c.Request.Context(), req.Page, req.PageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, accounts, total, req.Page, req.PageSize)
}

// GetByCounterparty godoc
// @Summary      Get ledger account by counterparty
// @Description  Retrieve the ledger account for a single counterparty
// @Tags         accounts
// @Produce      json
// @Param        counterparty_id path string true "Counterparty ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.AccountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/accounts/{counterparty_id} [get]
func (h *AccountHandler) GetByCounterparty(c *gin.Context) {
	counterpartyID, err := uuid.Parse(c.Param("counterparty_id"))
	if err != nil {
		h.BadRequest(c, "Invalid counterparty ID format")
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), counterpartyID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, account)
}

// Recompute godoc
// @Summary      Recompute a ledger account
// @Description  Rebuild the account balance from its source documents
// @Tags         accounts
// @Produce      json
// @Param        counterparty_id path string true "Counterparty ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.AccountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/accounts/{counterparty_id}/recompute [post]
func (h *AccountHandler) Recompute(c *gin.Context) {
	counterpartyID, err := uuid.Parse(c.Param("counterparty_id"))
	if err != nil {
		h.BadRequest(c, "Invalid counterparty ID format")
		return
	}

	account, err := h.accountService.RecomputeAccount(c.Request.Context(), counterpartyID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, account)
}

// Reconcile godoc
// @Summary      Reconcile all ledger accounts
// @Description  Recompute every account from source documents and report any drift
// @Tags         accounts
// @Produce      json
// @Success      200 {object} dto.Response{data=ledgerapp.ReconciliationReport}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/accounts/reconcile [post]
func (h *AccountHandler) Reconcile(c *gin.Context) {
	report, err := h.accountService.ReconcileAll(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}
