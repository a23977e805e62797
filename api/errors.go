package api

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"shipbooking/internal/domain"
)

// respondError maps typed domain failures to specific, actionable
// responses. Anything unmatched is a storage fault: no partial state is
// observable after rollback, so the client gets a generic retry-safe
// message.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidContainerType),
		errors.Is(err, domain.ErrInvalidCargo):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrVoyageNotFound),
		errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrAllocationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientCapacity),
		errors.Is(err, domain.ErrVoyageUnavailable),
		errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrContractExecuted),
		errors.Is(err, domain.ErrReferenceLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temporary storage error, please retry"})
	}
}
