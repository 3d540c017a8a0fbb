package ginserver

import (
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	"staynest/internal/app/dto"
	availabilityapp "staynest/internal/app/handlers/availability"
	"staynest/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
}

// Calendar serves the month grid; defaults to the current month when the
// year/month query params are absent.
func (h AvailabilityHandler) Calendar(c *gin.Context) {
	now := time.Now().UTC()
	year, err := intQuery(c, "year", now.Year())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	month, err := intQuery(c, "month", int(now.Month()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}
	query := availabilityapp.GetCalendarQuery{
		ListingID: c.Param("id"),
		Year:      year,
		Month:     time.Month(month),
	}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
