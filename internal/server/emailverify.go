package server

import (
	"github.com/gin-gonic/gin"
)

type requestOTPRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

func (s *Server) RequestOTP(c *gin.Context) {
	var req requestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.emailVerifySvc.RequestCode(c.Request.Context(), req.UID, req.Email); err != nil {
		AbortWithError(c, err)
		return
	}

	respondSuccess(c, "verification code sent", nil)
}

type verifyOTPRequest struct {
	UID string `json:"uid"`
	OTP string `json:"otp"`
}

func (s *Server) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	verification, err := s.emailVerifySvc.VerifyCode(c.Request.Context(), req.UID, req.OTP)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondSuccess(c, "email verified", gin.H{"email": verification.Email})
}
