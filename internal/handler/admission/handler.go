package admission

import (
	"github.com/gin-gonic/gin"

	"github.com/intisalud/hospital-api/internal/middleware"
	"github.com/intisalud/hospital-api/internal/model"
	occupancyService "github.com/intisalud/hospital-api/internal/service/occupancy"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/httputil"
)

type Handler struct {
	occupancy *occupancyService.Service
}

func NewHandler(occupancy *occupancyService.Service) *Handler {
	return &Handler{occupancy: occupancy}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admissions := r.Group("/admissions")
	{
		admissions.POST("", h.Admit)
		admissions.POST("/discharge", h.Discharge)
		admissions.POST("/transfer", h.Transfer)
		admissions.GET("/patients", h.FindPatients)
		admissions.GET("/stats", h.Stats)
	}
}

func (h *Handler) Admit(c *gin.Context) {
	var req model.AdmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	actorID, err := middleware.StaffID(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}

	entry, err := h.occupancy.Admit(c.Request.Context(), &req, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, entry)
}

func (h *Handler) Discharge(c *gin.Context) {
	var req model.DischargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	actorID, err := middleware.StaffID(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}

	entry, err := h.occupancy.Discharge(c.Request.Context(), &req, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entry)
}

func (h *Handler) Transfer(c *gin.Context) {
	var req model.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	actorID, err := middleware.StaffID(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}

	result, err := h.occupancy.Transfer(c.Request.Context(), &req, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) FindPatients(c *gin.Context) {
	var filters model.PatientSearchFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	patients, err := h.occupancy.FindPatients(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patients)
}

func (h *Handler) Stats(c *gin.Context) {
	var filters model.OccupancyStatsFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	stats, err := h.occupancy.OccupancyStats(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}
