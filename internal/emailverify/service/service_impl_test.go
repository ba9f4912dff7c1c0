package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/subtracklabs/subtrack/internal/emailverify/domain"
	"github.com/subtracklabs/subtrack/internal/emailverify/store"
	"go.uber.org/zap"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type mutableClock struct{ now time.Time }

func (c *mutableClock) Now(context.Context) time.Time { return c.now }

type captureSender struct {
	to   string
	code string
	sent int
}

func (s *captureSender) SendOTP(toEmail, code string) error {
	s.to = toEmail
	s.code = code
	s.sent++
	return nil
}

func newTestService(t *testing.T) (*Service, *captureSender, *mutableClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sender := &captureSender{}
	clk := &mutableClock{now: testTime}
	svc := NewService(Params{
		Log:    zap.NewNop(),
		Store:  store.NewRedisStore(client),
		Sender: sender,
		Clock:  clk,
	}).(*Service)
	return svc, sender, clk
}

func TestRequestCodeSendsSixDigitOTP(t *testing.T) {
	svc, sender, _ := newTestService(t)

	require.NoError(t, svc.RequestCode(context.Background(), "acct_1", "user@example.com"))
	require.Equal(t, 1, sender.sent)
	require.Equal(t, "user@example.com", sender.to)
	require.Len(t, sender.code, 6)
}

func TestRequestCodeRejectsWhileCodeActive(t *testing.T) {
	svc, sender, clk := newTestService(t)

	require.NoError(t, svc.RequestCode(context.Background(), "acct_1", "user@example.com"))
	err := svc.RequestCode(context.Background(), "acct_1", "user@example.com")
	require.ErrorIs(t, err, domain.ErrCodeStillActive)
	require.Equal(t, 1, sender.sent)

	// After expiry a new code can be requested.
	clk.now = clk.now.Add(16 * time.Minute)
	require.NoError(t, svc.RequestCode(context.Background(), "acct_1", "user@example.com"))
	require.Equal(t, 2, sender.sent)
}

func TestVerifyCodeMarksVerifiedAndClearsCode(t *testing.T) {
	svc, sender, _ := newTestService(t)

	require.NoError(t, svc.RequestCode(context.Background(), "acct_1", "user@example.com"))
	verification, err := svc.VerifyCode(context.Background(), "acct_1", sender.code)
	require.NoError(t, err)
	require.True(t, verification.Verified)
	require.Empty(t, verification.Code)

	// The consumed code cannot be replayed.
	_, err = svc.VerifyCode(context.Background(), "acct_1", sender.code)
	require.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestVerifyCodeRejectsExpired(t *testing.T) {
	svc, sender, clk := newTestService(t)

	require.NoError(t, svc.RequestCode(context.Background(), "acct_1", "user@example.com"))
	clk.now = clk.now.Add(20 * time.Minute)

	_, err := svc.VerifyCode(context.Background(), "acct_1", sender.code)
	require.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestVerifyCodeRejectsMismatch(t *testing.T) {
	svc, sender, _ := newTestService(t)

	require.NoError(t, svc.RequestCode(context.Background(), "acct_1", "user@example.com"))
	wrong := "000000"
	if sender.code == wrong {
		wrong = "000001"
	}

	_, err := svc.VerifyCode(context.Background(), "acct_1", wrong)
	require.ErrorIs(t, err, domain.ErrCodeMismatch)
}

func TestEmailVerifiedUnderDifferentAccountIsRejected(t *testing.T) {
	svc, sender, _ := newTestService(t)

	require.NoError(t, svc.RequestCode(context.Background(), "acct_1", "user@example.com"))
	_, err := svc.VerifyCode(context.Background(), "acct_1", sender.code)
	require.NoError(t, err)

	err = svc.RequestCode(context.Background(), "acct_2", "user@example.com")
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestVerifyWithoutPendingCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.VerifyCode(context.Background(), "acct_1", "123456")
	require.ErrorIs(t, err, domain.ErrNoPendingCode)
}
