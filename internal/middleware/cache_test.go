package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCacheControlMarksGETs(t *testing.T) {
	r := gin.New()
	r.Use(CacheControl(10 * time.Minute))
	r.GET("/catalog/medications", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/medications", nil))

	assert.Equal(t, "private, max-age=600", w.Header().Get("Cache-Control"))
}

func TestCacheControlForbidsStoringWrites(t *testing.T) {
	r := gin.New()
	r.Use(CacheControl(10 * time.Minute))
	r.POST("/catalog/medications", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/catalog/medications", nil))

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
