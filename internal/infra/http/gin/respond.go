package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staynest/internal/domain/shared/fault"
)

// respondError maps the failure classification onto an HTTP status and
// a uniform error body. Unclassified errors stay opaque 500s.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.KindInvalidInput:
		status = http.StatusBadRequest
	case fault.KindConflict:
		status = http.StatusConflict
	case fault.KindForbidden:
		status = http.StatusForbidden
	case fault.KindNotFound:
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": err.Error(), "kind": string(fault.KindOf(err))}
	if field := fault.FieldOf(err); field != "" {
		body["field"] = field
	}
	c.JSON(status, body)
}
