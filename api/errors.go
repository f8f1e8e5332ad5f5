package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skyops/emptylegs/internal/domain"
)

// respondError maps domain errors onto HTTP statuses. Busy and conflict
// responses use 409 so schedulers and callers can tell them apart from hard
// failures.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"status": "busy", "error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientSeats),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDeadlinePassed),
		errors.Is(err, domain.ErrNotOverdue),
		errors.Is(err, domain.ErrEvidenceRequired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
