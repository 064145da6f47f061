package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type BodyLimitConfig struct {
	MaxBytes int64
}

func DefaultBodyLimitConfig() BodyLimitConfig {
	// Largest legitimate payload is a prescription with a few dozen lines,
	// far under 1MB.
	return BodyLimitConfig{MaxBytes: 1 << 20}
}

// BodyLimit rejects oversized request bodies. A declared Content-Length
// over the cap fails immediately; chunked uploads are cut off by
// MaxBytesReader once the handler reads past the cap.
func BodyLimit(config BodyLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > config.MaxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Code:    http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", config.MaxBytes),
				TraceID: RequestIDFrom(c),
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxBytes)
		c.Next()
	}
}
