package server

import (
	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/subtracklabs/subtrack/internal/subscription/domain"
)

type paymentSheetRequest struct {
	UID     string `json:"uid"`
	PriceID string `json:"priceId"`
	Email   string `json:"email"`
}

func (s *Server) CreatePaymentSheet(c *gin.Context) {
	var req paymentSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.CreatePaymentSheet(c.Request.Context(), subscriptiondomain.PaymentSheetRequest{
		AccountID: req.UID,
		PriceID:   req.PriceID,
		Email:     req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

type accountRequest struct {
	UID string `json:"uid"`
}

func (s *Server) CancelSubscription(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), req.UID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondSuccess(c, "subscription will cancel at the end of the billing period", resp)
}

func (s *Server) ReactivateSubscription(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Reactivate(c.Request.Context(), req.UID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondSuccess(c, "subscription reactivated", resp)
}

func (s *Server) UpdatePaymentMethod(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.CreateSetupIntent(c.Request.Context(), req.UID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

type applyPaymentMethodRequest struct {
	UID             string `json:"uid"`
	PaymentMethodID string `json:"paymentMethodId"`
}

func (s *Server) ApplyPaymentMethod(c *gin.Context) {
	var req applyPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.ApplyPaymentMethod(c.Request.Context(), subscriptiondomain.ApplyPaymentMethodRequest{
		AccountID:       req.UID,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondSuccess(c, "payment method updated", resp)
}

type updateEmailRequest struct {
	UID      string `json:"uid"`
	NewEmail string `json:"newEmail"`
}

func (s *Server) UpdateEmail(c *gin.Context) {
	var req updateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.UpdateEmail(c.Request.Context(), subscriptiondomain.UpdateEmailRequest{
		AccountID: req.UID,
		Email:     req.NewEmail,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondSuccess(c, "billing email updated", resp)
}
