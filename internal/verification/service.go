package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/skyroute/skyroute-api/internal/kv"
	"github.com/skyroute/skyroute-api/internal/notification"
)

const keyPrefix = "verification:"

var (
	// ErrEmailRequired indicates a missing email address.
	ErrEmailRequired = errors.New("verification: email is required")
	// ErrInvalidCode indicates the submitted code is absent, expired or wrong.
	ErrInvalidCode = errors.New("verification: invalid code")

	codeSpace = big.NewInt(1000000)
)

// Service issues and consumes short-lived email verification codes. At most
// one live code exists per email; issuing a new one invalidates the previous.
type Service struct {
	store    kv.Store
	notifier notification.Notifier
	ttl      time.Duration
	logger   *slog.Logger
}

// NewService wires the verification code flow.
func NewService(store kv.Store, notifier notification.Notifier, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{store: store, notifier: notifier, ttl: ttl, logger: logger}
}

// Issue generates a 6-digit code for the email, stores it with the configured
// TTL and hands it to the notifier for out-of-band delivery. flow tags the
// request origin ("register" or "reset") for logging only.
func (s *Service) Issue(ctx context.Context, email, flow string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("verification: generate code: %w", err)
	}

	if err := s.store.PutWithTTL(ctx, keyPrefix+email, code, s.ttl); err != nil {
		return fmt.Errorf("verification: store code: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("verification code issued", "email", email, "flow", flow, "ttl", s.ttl.String())
	}

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindVerificationCode,
			Destination: email,
			Body:        code,
		}); err != nil {
			return fmt.Errorf("verification: deliver code: %w", err)
		}
	}

	return nil
}

// Check validates the submitted code against the stored one without touching
// it. Callers that need to validate before other writes use Check first, then
// Consume once the overall operation succeeded.
func (s *Service) Check(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrInvalidCode
	}

	stored, err := s.store.Get(ctx, keyPrefix+email)
	if errors.Is(err, kv.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("verification: fetch code: %w", err)
	}

	if stored != code {
		return ErrInvalidCode
	}
	return nil
}

// Consume checks the submitted code and deletes it on match, so a code works
// exactly once within its lifetime.
func (s *Service) Consume(ctx context.Context, email, code string) error {
	if err := s.Check(ctx, email, code); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, keyPrefix+normalizeEmail(email)); err != nil {
		return fmt.Errorf("verification: consume code: %w", err)
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
