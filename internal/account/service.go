package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/skyroute/skyroute-api/internal/secrets"
	"github.com/skyroute/skyroute-api/internal/verification"
)

const minPasswordLength = 4

var (
	// ErrInvalidPassword indicates the password does not match the stored hash.
	ErrInvalidPassword = errors.New("account: invalid password")
	// ErrWeakPassword indicates the submitted password is too short.
	ErrWeakPassword = fmt.Errorf("account: password must be at least %d characters", minPasswordLength)
)

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	UserID   string
	Password string
	Name     string
	Email    string
	Code     string
}

// Service implements the account lifecycle: registration gated by an email
// verification code, password login, find-ID recovery and code-gated password
// reset.
type Service struct {
	repo   Repository
	codes  *verification.Service
	cipher *secrets.Cipher
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the account service.
func NewService(repo Repository, codes *verification.Service, cipher *secrets.Cipher, logger *slog.Logger) *Service {
	return &Service{repo: repo, codes: codes, cipher: cipher, logger: logger, now: time.Now}
}

// Register validates the verification code, hashes the password, encrypts the
// personal fields and persists the account plus its lookup index entry. The
// duplicate-ID check rides on the repository's conditional insert, so two
// concurrent registrations for the same identifier cannot both win. The code
// is consumed only after the account exists, keeping it usable if creation
// fails.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	in.UserID = strings.TrimSpace(in.UserID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if len(in.Password) < minPasswordLength {
		return ErrWeakPassword
	}

	if err := s.codes.Check(ctx, in.Email, in.Code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("account: hash password: %w", err)
	}

	nameEnc, err := s.cipher.Encrypt(in.Name)
	if err != nil {
		return fmt.Errorf("account: encrypt name: %w", err)
	}
	emailEnc, err := s.cipher.Encrypt(in.Email)
	if err != nil {
		return fmt.Errorf("account: encrypt email: %w", err)
	}

	acct := Account{
		UserID:       in.UserID,
		PasswordHash: string(hash),
		Name:         nameEnc,
		Email:        emailEnc,
		CreatedAt:    s.now().UTC(),
	}
	idx := Lookup{Name: in.Name, Email: in.Email, UserID: in.UserID}

	if err := s.repo.Create(ctx, acct, idx); err != nil {
		return err
	}

	if err := s.codes.Consume(ctx, in.Email, in.Code); err != nil && s.logger != nil {
		// The account exists either way; a stale code only lives until its TTL.
		s.logger.Warn("failed to consume verification code", "email", in.Email, "error", err)
	}

	if s.logger != nil {
		s.logger.Info("account registered", "user_id", in.UserID)
	}
	return nil
}

// Login verifies the password and returns the decrypted display name.
func (s *Service) Login(ctx context.Context, userID, password string) (string, error) {
	acct, err := s.repo.Get(ctx, strings.TrimSpace(userID))
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}

	name, err := s.cipher.Decrypt(acct.Name)
	if err != nil {
		return "", fmt.Errorf("account: decrypt name: %w", err)
	}
	return name, nil
}

// FindID resolves an account identifier from the lookup index. Pure read.
func (s *Service) FindID(ctx context.Context, name, email string) (string, error) {
	return s.repo.FindID(ctx, strings.TrimSpace(name), normalizeEmail(email))
}

// ResetPassword re-validates a verification code issued for the account's
// stored email, then overwrites the password hash. Only the password field
// changes; failure leaves the account untouched.
func (s *Service) ResetPassword(ctx context.Context, userID, newPassword, code string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	acct, err := s.repo.Get(ctx, strings.TrimSpace(userID))
	if err != nil {
		return err
	}

	email, err := s.cipher.Decrypt(acct.Email)
	if err != nil {
		return fmt.Errorf("account: decrypt email: %w", err)
	}

	if err := s.codes.Check(ctx, email, code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("account: hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, acct.UserID, string(hash)); err != nil {
		return err
	}

	if err := s.codes.Consume(ctx, email, code); err != nil && s.logger != nil {
		s.logger.Warn("failed to consume verification code", "email", email, "error", err)
	}

	if s.logger != nil {
		s.logger.Info("password reset", "user_id", acct.UserID)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
