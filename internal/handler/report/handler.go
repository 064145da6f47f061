package report

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/intisalud/hospital-api/internal/model"
	reportService "github.com/intisalud/hospital-api/internal/service/report"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/httputil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	reports *reportService.Service
}

func NewHandler(reports *reportService.Service) *Handler {
	return &Handler{reports: reports}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	{
		reports.GET("/occupancy", h.Occupancy)
		reports.GET("/movements", h.Movements)
		reports.GET("/movements/export", h.ExportMovements)
	}
}

func (h *Handler) Occupancy(c *gin.Context) {
	filters, err := h.bindFilters(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	report, err := h.reports.OccupancyReport(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, report)
}

func (h *Handler) Movements(c *gin.Context) {
	filters, err := h.bindFilters(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	report, err := h.reports.MovementReport(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, report)
}

// ExportMovements streams the movement report as an xlsx attachment instead of
// the JSON envelope.
func (h *Handler) ExportMovements(c *gin.Context) {
	filters, err := h.bindFilters(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	data, filename, err := h.reports.ExportMovements(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) bindFilters(c *gin.Context) (*model.ReportFilters, error) {
	var filters model.ReportFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		return nil, err
	}
	var err error
	if filters.From, err = httputil.ParseTimeParam(c, "from"); err != nil {
		return nil, err
	}
	if filters.To, err = httputil.ParseTimeParam(c, "to"); err != nil {
		return nil, err
	}
	return &filters, nil
}
