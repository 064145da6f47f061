package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithQuery(rawQuery string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestParseTimeParamRFC3339(t *testing.T) {
	c := contextWithQuery("from=2026-03-10T09:30:00Z")

	got, err := ParseTimeParam(c, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC), got)
}

func TestParseTimeParamDateOnly(t *testing.T) {
	c := contextWithQuery("from=2026-03-10")

	got, err := ParseTimeParam(c, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestParseTimeParamMissing(t *testing.T) {
	c := contextWithQuery("other=1")

	got, err := ParseTimeParam(c, "from")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestParseTimeParamInvalid(t *testing.T) {
	c := contextWithQuery("from=10%2F03%2F2026")

	_, err := ParseTimeParam(c, "from")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from")
}
