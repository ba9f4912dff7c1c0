package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/subtracklabs/subtrack/internal/clock"
	"github.com/subtracklabs/subtrack/internal/emailverify/domain"
	"github.com/subtracklabs/subtrack/internal/mailer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	codeExpiry = 15 * time.Minute

	// Verified state and the email-owner index outlive the code itself so
	// the cross-account rule can be enforced after verification.
	verifiedTTL = 30 * 24 * time.Hour
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Store  domain.Store
	Sender mailer.Sender
	Clock  clock.Clock
}

type Service struct {
	log    *zap.Logger
	store  domain.Store
	sender mailer.Sender
	clock  clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("emailverify.service"),
		store:  p.Store,
		sender: p.Sender,
		clock:  p.Clock,
	}
}

func (s *Service) RequestCode(ctx context.Context, accountID, email string) error {
	accountID = strings.TrimSpace(accountID)
	email = strings.ToLower(strings.TrimSpace(email))
	if accountID == "" || email == "" {
		return fmt.Errorf("%w: uid and email are required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}

	owner, err := s.store.VerifiedOwner(ctx, email)
	if err != nil {
		return err
	}
	if owner != "" && owner != accountID {
		return domain.ErrEmailTaken
	}

	now := s.clock.Now(ctx)
	existing, err := s.store.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if existing != nil && !existing.Verified && now.Before(existing.ExpiresAt) {
		return domain.ErrCodeStillActive
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	verification := &domain.Verification{
		AccountID: accountID,
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(codeExpiry),
	}
	if err := s.store.Put(ctx, verification, codeExpiry); err != nil {
		return err
	}

	if err := s.sender.SendOTP(email, code); err != nil {
		return err
	}

	s.log.Info("verification code issued", zap.String("account_id", accountID))
	return nil
}

func (s *Service) VerifyCode(ctx context.Context, accountID, code string) (*domain.Verification, error) {
	accountID = strings.TrimSpace(accountID)
	code = strings.TrimSpace(code)
	if accountID == "" || code == "" {
		return nil, fmt.Errorf("%w: uid and otp are required", domain.ErrValidation)
	}

	verification, err := s.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if verification == nil || verification.Code == "" {
		if verification != nil && verification.Verified {
			return nil, domain.ErrAlreadyVerified
		}
		return nil, domain.ErrNoPendingCode
	}

	now := s.clock.Now(ctx)
	if now.After(verification.ExpiresAt) {
		return nil, domain.ErrCodeExpired
	}
	if verification.Code != code {
		return nil, domain.ErrCodeMismatch
	}

	owner, err := s.store.VerifiedOwner(ctx, verification.Email)
	if err != nil {
		return nil, err
	}
	if owner != "" && owner != accountID {
		return nil, domain.ErrEmailTaken
	}

	verification.Verified = true
	verification.Code = ""
	if err := s.store.Put(ctx, verification, verifiedTTL); err != nil {
		return nil, err
	}
	if err := s.store.ClaimEmail(ctx, verification.Email, accountID, verifiedTTL); err != nil {
		return nil, err
	}

	s.log.Info("email verified", zap.String("account_id", accountID))
	return verification, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
