package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type SecurityConfig struct {
	HSTSMaxAge time.Duration
	CSP        string
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge: 365 * 24 * time.Hour,
		// JSON-only API: nothing may frame it or run scripts against it.
		CSP: "default-src 'none'; frame-ancestors 'none'",
	}
}

// SecurityHeaders hardens every response. Ward terminals run old browsers,
// so the headers matter even for an internal deployment.
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.HSTSMaxAge > 0 {
			c.Header("Strict-Transport-Security",
				"max-age="+strconv.Itoa(int(config.HSTSMaxAge.Seconds()))+"; includeSubDomains")
		}
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		if config.CSP != "" {
			c.Header("Content-Security-Policy", config.CSP)
		}
		c.Next()
	}
}
