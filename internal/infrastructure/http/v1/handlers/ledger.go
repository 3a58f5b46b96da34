package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/domain"
	"facturio/internal/domain/ledger"
	"facturio/internal/infrastructure/http/v1/dto"
)

// LedgerHandler handles HTTP requests for accounts and journal entries.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// --- Accounts ---

// CreateAccount handles POST /ledger/accounts.
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account := req.ToEntity(ctx)
	if err := h.service.CreateAccount(ctx, account); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, account)
}

// GetAccount handles GET /ledger/accounts/:id.
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	accountID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, account)
}

// ListAccounts handles GET /ledger/accounts.
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	filter := ledger.AccountFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "code")

	if accType := c.Query("type"); accType != "" {
		parsed := ledger.AccountType(accType)
		filter.Type = &parsed
	}

	result, err := h.service.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// GetBalance handles GET /ledger/accounts/:id/balance with optional
// from/to bounds (RFC3339).
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	accountID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	dateRange := parseDateRange(c)

	balance, err := h.service.GetAccountBalance(c.Request.Context(), accountID, dateRange)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.BalanceResponse{AccountID: accountID.String(), Balance: balance}
	if dateRange != nil {
		resp.From = dateRange.From
		resp.To = dateRange.To
	}
	h.OK(c, resp)
}

// AdjustBalance handles POST /ledger/accounts/:id/adjust-balance.
// Declarative: the request states the balance the account should have
// and the engine posts the delta entry, if any.
func (h *LedgerHandler) AdjustBalance(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AdjustBalanceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	counterpartID, err := dto.ParseOptionalID("counterpartAccountId", req.CounterpartAccountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	entry, err := h.service.AdjustBalance(ctx, accountID, req.DesiredBalance, counterpartID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AdjustBalanceResponse{
		AccountID: accountID.String(),
		Balance:   req.DesiredBalance,
		Entry:     entry,
	})
}

// --- Journal entries ---

// CreateEntry handles POST /ledger/entries.
func (h *LedgerHandler) CreateEntry(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entry, err := req.ToEntity(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.CreateEntry(ctx, entry); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, entry)
}

// GetEntry handles GET /ledger/entries/:id.
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	entryID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	entry, err := h.service.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, entry)
}

// ListEntries handles GET /ledger/entries.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	filter := ledger.EntryFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-entry_date")

	if accountID := c.Query("accountId"); accountID != "" {
		if parsed, err := id.Parse(accountID); err == nil {
			filter.AccountID = &parsed
		}
	}
	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

func parseDateRange(c *gin.Context) *ledger.DateRange {
	var dateRange ledger.DateRange
	if from := c.Query("from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			dateRange.From = &parsed
		}
	}
	if to := c.Query("to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			dateRange.To = &parsed
		}
	}
	if dateRange.From == nil && dateRange.To == nil {
		return nil
	}
	return &dateRange
}

// RegisterRoutes registers ledger routes.
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.GET("/:id/balance", h.GetBalance)
		accounts.POST("/:id/adjust-balance", h.AdjustBalance)
	}

	entries := rg.Group("/entries")
	{
		entries.POST("", h.CreateEntry)
		entries.GET("", h.ListEntries)
		entries.GET("/:id", h.GetEntry)
	}
}
