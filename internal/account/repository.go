package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/skyroute/skyroute-api/internal/kv"
)

const (
	userKeyPrefix   = "user:"
	lookupKeyPrefix = "lookup:"
)

var (
	// ErrNotFound indicates no account exists under the identifier.
	ErrNotFound = errors.New("account: not found")
	// ErrDuplicateID indicates the identifier is already taken.
	ErrDuplicateID = errors.New("account: id already exists")
)

// Repository persists account records and the find-ID lookup index.
type Repository interface {
	// Create stores a new account and its lookup entry. Returns
	// ErrDuplicateID when the identifier is already taken.
	Create(ctx context.Context, acct Account, idx Lookup) error
	// Get fetches an account by identifier, or ErrNotFound.
	Get(ctx context.Context, userID string) (Account, error)
	// UpdatePassword overwrites only the password hash of an existing account.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	// FindID resolves (name, email) to an account identifier, or ErrNotFound.
	FindID(ctx context.Context, name, email string) (string, error)
}

// KVRepository stores accounts as JSON records in the key-value store under
// user:<id>, with the lookup index at lookup:<name>:<email>.
type KVRepository struct {
	store kv.Store
}

// NewKVRepository builds a key-value backed account repository.
func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

// Create inserts the account with a conditional write so concurrent
// registrations for the same identifier cannot both succeed. The lookup entry
// is written second; the two writes are not atomic.
func (r *KVRepository) Create(ctx context.Context, acct Account, idx Lookup) error {
	payload, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("account: encode record: %w", err)
	}

	ok, err := r.store.PutIfAbsent(ctx, userKeyPrefix+acct.UserID, string(payload))
	if err != nil {
		return fmt.Errorf("account: store record: %w", err)
	}
	if !ok {
		return ErrDuplicateID
	}

	if err := r.store.Put(ctx, lookupKey(idx.Name, idx.Email), idx.UserID); err != nil {
		return fmt.Errorf("account: store lookup entry: %w", err)
	}
	return nil
}

// Get fetches and decodes the account record.
func (r *KVRepository) Get(ctx context.Context, userID string) (Account, error) {
	raw, err := r.store.Get(ctx, userKeyPrefix+userID)
	if errors.Is(err, kv.ErrNotFound) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("account: fetch record: %w", err)
	}

	var acct Account
	if err := json.Unmarshal([]byte(raw), &acct); err != nil {
		return Account{}, fmt.Errorf("account: decode record: %w", err)
	}
	return acct, nil
}

// UpdatePassword rewrites the record with only the password hash changed.
func (r *KVRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	acct, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}

	acct.PasswordHash = passwordHash
	payload, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("account: encode record: %w", err)
	}
	if err := r.store.Put(ctx, userKeyPrefix+userID, string(payload)); err != nil {
		return fmt.Errorf("account: store record: %w", err)
	}
	return nil
}

// FindID reads the lookup index.
func (r *KVRepository) FindID(ctx context.Context, name, email string) (string, error) {
	userID, err := r.store.Get(ctx, lookupKey(name, email))
	if errors.Is(err, kv.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("account: fetch lookup entry: %w", err)
	}
	return userID, nil
}

func lookupKey(name, email string) string {
	return lookupKeyPrefix + name + ":" + email
}
