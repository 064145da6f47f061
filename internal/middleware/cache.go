package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl marks GET responses as privately cacheable for maxAge.
// The catalog routes use it: medication and exam references change a few
// times a year, and ward terminals re-query them on every order form.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	value := "private, max-age=" + strconv.Itoa(int(maxAge.Seconds()))

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Header("Cache-Control", value)
		} else {
			c.Header("Cache-Control", "no-store")
		}
		c.Next()
	}
}
