package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	processordomain "github.com/subtracklabs/subtrack/internal/processor/domain"
)

// HandleWebhook receives raw processor deliveries. The body must stay
// untouched for signature verification. An unhandled event type is still
// acknowledged with 200 so the processor stops redelivering it.
func (s *Server) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")

	if err := s.subscriptionSvc.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		switch {
		case errors.Is(err, processordomain.ErrMissingWebhookSecret):
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook secret not configured"})
		case errors.Is(err, processordomain.ErrMissingSignature),
			errors.Is(err, processordomain.ErrInvalidSignature),
			errors.Is(err, processordomain.ErrInvalidPayload):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			AbortWithError(c, err)
		}
		return
	}

	respondData(c, gin.H{"received": true})
}
