package bed

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/intisalud/hospital-api/internal/middleware"
	"github.com/intisalud/hospital-api/internal/model"
	bedService "github.com/intisalud/hospital-api/internal/service/bed"
	occupancyService "github.com/intisalud/hospital-api/internal/service/occupancy"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/httputil"
)

type Handler struct {
	beds      *bedService.Service
	occupancy *occupancyService.Service
}

func NewHandler(beds *bedService.Service, occupancy *occupancyService.Service) *Handler {
	return &Handler{beds: beds, occupancy: occupancy}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	beds := r.Group("/beds")
	{
		beds.POST("", adminOnly, h.CreateBed)
		beds.GET("", h.ListBeds)
		beds.GET("/wards", h.WardSummaries)
		beds.GET("/:code", h.GetBed)
		beds.PUT("/:code/state", h.UpdateState)
		beds.DELETE("/:code", adminOnly, h.DeactivateBed)
		beds.GET("/:code/history", h.History)
		beds.GET("/:code/occupant", h.CurrentOccupant)
	}
}

func (h *Handler) CreateBed(c *gin.Context) {
	var req model.CreateBedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	actorID, err := middleware.StaffID(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}

	bed, err := h.beds.CreateBed(c.Request.Context(), &req, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, bed)
}

func (h *Handler) ListBeds(c *gin.Context) {
	var filters model.BedFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	beds, err := h.beds.ListBeds(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, beds)
}

func (h *Handler) GetBed(c *gin.Context) {
	bed, err := h.beds.GetBed(c.Request.Context(), c.Param("code"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bed)
}

func (h *Handler) UpdateState(c *gin.Context) {
	var req model.UpdateBedStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	actorID, err := middleware.StaffID(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}

	bed, err := h.beds.SetOperationalState(c.Request.Context(), c.Param("code"), &req, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bed)
}

func (h *Handler) DeactivateBed(c *gin.Context) {
	actorID, err := middleware.StaffID(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}

	code := c.Param("code")
	if err := h.beds.DeactivateBed(c.Request.Context(), code, actorID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"code": code, "active": false})
}

func (h *Handler) WardSummaries(c *gin.Context) {
	summaries, err := h.beds.WardSummaries(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summaries)
}

func (h *Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	history, err := h.occupancy.History(c.Request.Context(), c.Param("code"), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, history)
}

func (h *Handler) CurrentOccupant(c *gin.Context) {
	entry, err := h.occupancy.CurrentOccupant(c.Request.Context(), c.Param("code"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entry)
}
