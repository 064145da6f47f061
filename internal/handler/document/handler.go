package document

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/intisalud/hospital-api/internal/middleware"
	"github.com/intisalud/hospital-api/internal/model"
	documentService "github.com/intisalud/hospital-api/internal/service/document"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/httputil"
)

type Handler struct {
	documents *documentService.Service
}

func NewHandler(documents *documentService.Service) *Handler {
	return &Handler{documents: documents}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	docs := r.Group("/documents")
	{
		docs.POST("", h.Create)
		docs.GET("", h.List)
		docs.GET("/:id", h.Get)
		docs.PUT("/:id", h.Update)
		docs.POST("/:id/transition", h.Transition)
		docs.GET("/number/:number", h.GetByNumber)
		docs.GET("/stats/author/:id", h.AuthorStats)
		docs.GET("/stats/top-medications", h.TopMedications)
		docs.GET("/stats/top-exams", h.TopExams)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	actorID, err := middleware.StaffID(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), &req, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, doc)
}

func (h *Handler) List(c *gin.Context) {
	var filters model.DocumentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}
	if raw := c.Query("author_id"); raw != "" {
		authorID, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("invalid author_id"))
			return
		}
		filters.AuthorID = authorID
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

	docs, total, err := h.documents.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, docs, filters.Page, filters.PageSize, int64(total))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid document ID"))
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doc)
}

func (h *Handler) GetByNumber(c *gin.Context) {
	doc, err := h.documents.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doc)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid document ID"))
		return
	}

	var req model.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	actorID, err := middleware.StaffID(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}

	doc, err := h.documents.Update(c.Request.Context(), id, &req, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doc)
}

func (h *Handler) Transition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid document ID"))
		return
	}

	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	actorID, err := middleware.StaffID(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}

	doc, err := h.documents.Transition(c.Request.Context(), id, &req, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doc)
}

func (h *Handler) AuthorStats(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid author ID"))
		return
	}

	stats, err := h.documents.AuthorStats(c.Request.Context(), authorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}

func (h *Handler) TopMedications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.documents.TopPrescribedMedications(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) TopExams(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.documents.TopRequestedExams(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}
