package httputil

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const dateOnly = "2006-01-02"

// ParseTimeParam reads an optional query parameter as RFC3339 or YYYY-MM-DD.
// A missing parameter yields the zero time and no error.
func ParseTimeParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid %s, expected RFC3339 or YYYY-MM-DD", name)
}
