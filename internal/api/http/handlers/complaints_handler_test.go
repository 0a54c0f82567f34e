package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/service"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

func parseQuery(t *testing.T, query string) (service.ComplaintListFilter, error) {
	t.Helper()
	var (
		filter service.ComplaintListFilter
		err    error
	)
	app := fiber.New()
	app.Get("/complaints", func(c *fiber.Ctx) error {
		filter, err = parseComplaintQuery(c)
		return c.SendStatus(http.StatusNoContent)
	})
	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/complaints"+query, nil))
	require.NoError(t, testErr)
	resp.Body.Close()
	return filter, err
}

func TestParseComplaintQuery(t *testing.T) {
	filter, err := parseQuery(t, "?status=pending,Resolved&search=pothole&page=3&page_size=10")
	require.NoError(t, err)
	assert.Equal(t, []domain.ComplaintStatus{domain.StatusPending, domain.StatusResolved}, filter.Statuses)
	require.NotNil(t, filter.SearchTerm)
	assert.Equal(t, "pothole", *filter.SearchTerm)
	assert.Equal(t, 20, filter.Offset)
	assert.Equal(t, 10, filter.Limit)
}

func TestParseComplaintQueryDefaults(t *testing.T) {
	filter, err := parseQuery(t, "?page=0&page_size=5000")
	require.NoError(t, err)
	assert.Equal(t, 0, filter.Offset)
	assert.Equal(t, maxPageSize, filter.Limit)
}

func TestParseComplaintQueryRejectsBadInput(t *testing.T) {
	_, err := parseQuery(t, "?status=CLOSED")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = parseQuery(t, "?page=9223372036854775807&page_size=100")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	filter, err := parseQuery(t, "?page=100000&page_size=100")
	require.NoError(t, err)
	assert.Equal(t, 9999900, filter.Offset)
}
