package audit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/intisalud/hospital-api/internal/model"
	auditService "github.com/intisalud/hospital-api/internal/service/audit"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/httputil"
)

type Handler struct {
	audit *auditService.Service
}

func NewHandler(audit *auditService.Service) *Handler {
	return &Handler{audit: audit}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit", h.List)
}

// List returns the audit trail, newest first. The route sits behind the admin
// guard, so no per-record access checks here.
func (h *Handler) List(c *gin.Context) {
	var filters model.AuditFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}
	if raw := c.Query("staff_id"); raw != "" {
		staffID, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("invalid staff_id"))
			return
		}
		filters.StaffID = staffID
	}
	var err error
	if filters.From, err = httputil.ParseTimeParam(c, "from"); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}
	if filters.To, err = httputil.ParseTimeParam(c, "to"); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	logs, total, err := h.audit.ListWithPagination(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, logs, filters.Page, filters.PageSize, total)
}
