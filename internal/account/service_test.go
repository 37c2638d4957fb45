package account

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skyroute/skyroute-api/internal/kv"
	"github.com/skyroute/skyroute-api/internal/logging"
	"github.com/skyroute/skyroute-api/internal/notification"
	"github.com/skyroute/skyroute-api/internal/secrets"
	"github.com/skyroute/skyroute-api/internal/verification"
)

type codeCapture struct {
	last string
}

func (c *codeCapture) Send(_ context.Context, message notification.Message) error {
	c.last = message.Body
	return nil
}

type fixture struct {
	svc   *Service
	codes *verification.Service
	store *kv.MemoryStore
	sent  *codeCapture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kv.NewMemoryStore()
	sent := &codeCapture{}
	codes := verification.NewService(store, sent, 5*time.Minute, logging.Discard())

	cipher, err := secrets.NewCipher(bytes.Repeat([]byte{0x07}, 32))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	repo := NewKVRepository(store)
	return &fixture{
		svc:   NewService(repo, codes, cipher, logging.Discard()),
		codes: codes,
		store: store,
		sent:  sent,
	}
}

func (f *fixture) issueCode(t *testing.T, email string) string {
	t.Helper()
	if err := f.codes.Issue(context.Background(), email, "register"); err != nil {
		t.Fatalf("issue code: %v", err)
	}
	return f.sent.last
}

func (f *fixture) register(t *testing.T, userID, password, name, email string) {
	t.Helper()
	code := f.issueCode(t, email)
	err := f.svc.Register(context.Background(), RegisterInput{
		UserID:   userID,
		Password: password,
		Name:     name,
		Email:    email,
		Code:     code,
	})
	if err != nil {
		t.Fatalf("register %s: %v", userID, err)
	}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "p@ss1", "Alice", "a@x.com")

	name, err := f.svc.Login(ctx, "alice", "p@ss1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if name != "Alice" {
		t.Fatalf("expected name Alice, got %q", name)
	}
}

func TestRegisterStoresNoPlaintext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "p@ss1", "Alice", "a@x.com")

	raw, err := f.store.Get(ctx, "user:alice")
	if err != nil {
		t.Fatalf("fetch record: %v", err)
	}
	for _, secret := range []string{"p@ss1", "Alice", "a@x.com"} {
		if bytes.Contains([]byte(raw), []byte(secret)) {
			t.Fatalf("stored record leaks %q: %s", secret, raw)
		}
	}
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "p@ss1", "Alice", "a@x.com")

	code := f.issueCode(t, "other@x.com")
	err := f.svc.Register(ctx, RegisterInput{
		UserID:   "alice",
		Password: "different",
		Name:     "Other",
		Email:    "other@x.com",
		Code:     code,
	})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestRegisterRejectsBadCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code := f.issueCode(t, "a@x.com")
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	err := f.svc.Register(ctx, RegisterInput{
		UserID:   "alice",
		Password: "p@ss1",
		Name:     "Alice",
		Email:    "a@x.com",
		Code:     wrong,
	})
	if !errors.Is(err, verification.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	// Nothing was written.
	if _, err := f.svc.Login(ctx, "alice", "p@ss1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no account, got %v", err)
	}
}

func TestRegisterConsumesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code := f.issueCode(t, "a@x.com")
	err := f.svc.Register(ctx, RegisterInput{
		UserID:   "alice",
		Password: "p@ss1",
		Name:     "Alice",
		Email:    "a@x.com",
		Code:     code,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// The same code cannot be replayed for a second account.
	err = f.svc.Register(ctx, RegisterInput{
		UserID:   "alice2",
		Password: "p@ss1",
		Name:     "Alice",
		Email:    "a@x.com",
		Code:     code,
	})
	if !errors.Is(err, verification.ErrInvalidCode) {
		t.Fatalf("expected consumed code to be rejected, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "p@ss1", "Alice", "a@x.com")

	if _, err := f.svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "nobody", "p@ss1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "p@ss1", "Alice", "a@x.com")

	userID, err := f.svc.FindID(ctx, "Alice", "a@x.com")
	if err != nil {
		t.Fatalf("find id: %v", err)
	}
	if userID != "alice" {
		t.Fatalf("expected alice, got %q", userID)
	}

	if _, err := f.svc.FindID(ctx, "Bob", "a@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown name, got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "p@ss1", "Alice", "a@x.com")

	code := f.issueCode(t, "a@x.com")
	if err := f.svc.ResetPassword(ctx, "alice", "n3w-pass", code); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, err := f.svc.Login(ctx, "alice", "p@ss1"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	name, err := f.svc.Login(ctx, "alice", "n3w-pass")
	if err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if name != "Alice" {
		t.Fatalf("expected name preserved across reset, got %q", name)
	}
}

func TestResetPasswordUnknownUser(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ResetPassword(context.Background(), "ghost", "n3w-pass", "123456")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResetPasswordBadCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "p@ss1", "Alice", "a@x.com")

	err := f.svc.ResetPassword(ctx, "alice", "n3w-pass", "999999")
	if !errors.Is(err, verification.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	// Password unchanged on failure.
	if _, err := f.svc.Login(ctx, "alice", "p@ss1"); err != nil {
		t.Fatalf("old password should still work: %v", err)
	}
}
