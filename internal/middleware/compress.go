package middleware

import (
	"compress/gzip"
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

type CompressConfig struct {
	Level int
	// SkipPrefixes lists path prefixes served uncompressed: metrics
	// scrapes, health probes and xlsx exports, which are already deflated.
	SkipPrefixes []string
}

func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		Level: gzip.DefaultCompression,
		SkipPrefixes: []string{
			"/metrics",
			"/api/v1/health",
			"/api/v1/reports/movements/export",
		},
	}
}

type gzipWriter struct {
	gin.ResponseWriter
	gz *gzip.Writer
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	return w.gz.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return io.WriteString(w.gz, s)
}

// Compress gzips responses for clients that accept it. Movement lists run
// to hundreds of JSON rows, which compress roughly tenfold.
func Compress(config CompressConfig) gin.HandlerFunc {
	pool := sync.Pool{
		New: func() interface{} {
			gz, _ := gzip.NewWriterLevel(io.Discard, config.Level)
			return gz
		},
	}

	return func(c *gin.Context) {
		for _, prefix := range config.SkipPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		gz := pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		c.Writer = &gzipWriter{c.Writer, gz}

		defer func() {
			gz.Close()
			pool.Put(gz)
		}()

		c.Next()
	}
}
