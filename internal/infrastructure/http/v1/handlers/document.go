package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/domain"
	"facturio/internal/domain/billing/document"
	"facturio/internal/domain/billing/kind"
	"facturio/internal/infrastructure/http/v1/dto"
)

// DocumentHandler handles HTTP requests for commercial documents.
// One handler serves every registered kind; the kind travels in the body
// (create) or as a query filter (list).
type DocumentHandler struct {
	*BaseHandler
	service *document.Service
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(base *BaseHandler, service *document.Service) *DocumentHandler {
	return &DocumentHandler{BaseHandler: base, service: service}
}

// Create handles POST /documents.
func (h *DocumentHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToEntity(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, doc)
}

// Get handles GET /documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// List handles GET /documents - list with filtering.
func (h *DocumentHandler) List(c *gin.Context) {
	filter := document.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-issue_date")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if k := c.Query("kind"); k != "" {
		parsed := kind.DocumentKind(k)
		filter.Kind = &parsed
	}
	if status := c.Query("status"); status != "" {
		parsed := kind.DocumentStatus(status)
		filter.Status = &parsed
	}
	if clientID := c.Query("clientId"); clientID != "" {
		if parsed, err := id.Parse(clientID); err == nil {
			filter.ClientID = &parsed
		}
	}
	if supplierID := c.Query("supplierId"); supplierID != "" {
		if parsed, err := id.Parse(supplierID); err == nil {
			filter.SupplierID = &parsed
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

// Update handles PUT /documents/:id.
func (h *DocumentHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.ApplyTo(doc); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Convert handles POST /documents/:id/convert.
func (h *DocumentHandler) Convert(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.ConvertDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	target, err := h.service.Convert(ctx, docID, kind.DocumentKind(req.TargetKind))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, target)
}

// SetStatus handles POST /documents/:id/status.
func (h *DocumentHandler) SetStatus(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.SetStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetStatus(c.Request.Context(), docID, kind.DocumentStatus(req.Status)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "status updated")
}

// Cancel handles POST /documents/:id/cancel.
func (h *DocumentHandler) Cancel(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Cancel(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "document cancelled")
}

// Delete handles DELETE /documents/:id.
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers document routes.
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/convert", h.Convert)
	rg.POST("/:id/status", h.SetStatus)
	rg.POST("/:id/cancel", h.Cancel)
}
