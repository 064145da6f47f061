package catalog

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/intisalud/hospital-api/internal/model"
	catalogService "github.com/intisalud/hospital-api/internal/service/catalog"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/httputil"
)

type Handler struct {
	catalog *catalogService.Service
}

func NewHandler(catalog *catalogService.Service) *Handler {
	return &Handler{catalog: catalog}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cat := r.Group("/catalog")
	{
		cat.GET("/medications", h.SearchMedications)
		cat.GET("/medications/:code", h.GetMedication)
		cat.GET("/exams", h.SearchExams)
		cat.GET("/exams/categories", h.ExamCategories)
		cat.GET("/exams/:code", h.GetExam)
	}
}

func (h *Handler) SearchMedications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	medications, err := h.catalog.SearchMedications(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, medications)
}

func (h *Handler) GetMedication(c *gin.Context) {
	medication, err := h.catalog.GetMedicationByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, medication)
}

func (h *Handler) SearchExams(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	category := model.LineCategory(c.Query("category"))
	if category != "" && !category.Valid() {
		httputil.RespondWithError(c, apperrors.NewValidationf("unknown exam category %q", category))
		return
	}

	exams, err := h.catalog.SearchExamTypes(c.Request.Context(), c.Query("q"), category, limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, exams)
}

func (h *Handler) GetExam(c *gin.Context) {
	exam, err := h.catalog.GetExamTypeByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, exam)
}

func (h *Handler) ExamCategories(c *gin.Context) {
	categories, err := h.catalog.ListExamCategories(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, categories)
}
