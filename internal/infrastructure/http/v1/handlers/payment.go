package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/domain"
	"facturio/internal/domain/payment"
	"facturio/internal/infrastructure/http/v1/dto"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	*BaseHandler
	service *payment.Service
}

// NewPaymentHandler creates a payment handler.
func NewPaymentHandler(base *BaseHandler, service *payment.Service) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, service: service}
}

// Record handles POST /payments.
func (h *PaymentHandler) Record(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := req.ToEntity(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.RecordPayment(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p)
}

// Get handles GET /payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	paymentID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// List handles GET /payments.
func (h *PaymentHandler) List(c *gin.Context) {
	filter := payment.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-payment_date")

	if invoiceID := c.Query("invoiceId"); invoiceID != "" {
		if parsed, err := id.Parse(invoiceID); err == nil {
			filter.InvoiceID = &parsed
		}
	}
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

	result, err := h.service.List(c.Request.Context(), filter)
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

// Delete handles DELETE /payments/:id. The linked invoice's payment
// status is re-derived in the same transaction.
func (h *PaymentHandler) Delete(c *gin.Context) {
	paymentID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.DeletePayment(c.Request.Context(), paymentID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// RefreshStatus handles POST /payments/refresh/:invoiceId - recompute an
// invoice's payment snapshot from its live payments.
func (h *PaymentHandler) RefreshStatus(c *gin.Context) {
	invoiceID, err := id.Parse(c.Param("invoiceId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.RefreshPaymentStatus(c.Request.Context(), invoiceID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "payment status refreshed")
}

// RegisterRoutes registers payment routes.
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Record)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/refresh/:invoiceId", h.RefreshStatus)
}
