package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	emailverifydomain "github.com/subtracklabs/subtrack/internal/emailverify/domain"
	subscriptiondomain "github.com/subtracklabs/subtrack/internal/subscription/domain"
)

func respondSuccess(c *gin.Context, message string, data any) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func invalidRequestError() error {
	return fmt.Errorf("%w: invalid request body", subscriptiondomain.ErrValidation)
}

// AbortWithError maps domain errors onto the response taxonomy: validation
// and transition failures are client errors, a missing record is not-found,
// and upstream failures surface their message with a client-error status.
func AbortWithError(c *gin.Context, err error) {
	status := http.StatusBadRequest

	switch {
	case errors.Is(err, subscriptiondomain.ErrRecordNotFound),
		errors.Is(err, emailverifydomain.ErrNoPendingCode):
		status = http.StatusNotFound
	case errors.Is(err, emailverifydomain.ErrEmailTaken):
		status = http.StatusConflict
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
