package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/justsplit/internal/storage"
)

// AccountsCollection is the document collection holding accounts.
const AccountsCollection = "accounts"

// ErrAccountNotFound is returned when no account matches a lookup.
var ErrAccountNotFound = errors.New("account not found")

// Account is a sign-in identity. Its ID is also the ID of the user's
// profile in the users collection.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewAccount creates an account with a fresh ID.
func NewAccount(email, displayName, passwordHash string) *Account {
	return &Account{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountStorage defines the interface for account persistence operations.
// This allows the authenticator to be independent of the storage implementation.
type AccountStorage interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccountByID(ctx context.Context, id string) (*Account, error)
}

// Ensure DocumentAccounts implements AccountStorage
var _ AccountStorage = (*DocumentAccounts)(nil)

// DocumentAccounts keeps accounts in a document store.
type DocumentAccounts struct {
	db storage.DocumentStore
}

// NewDocumentAccounts creates an AccountStorage on db.
func NewDocumentAccounts(db storage.DocumentStore) *DocumentAccounts {
	return &DocumentAccounts{db: db}
}

// CreateAccount stores a new account under its ID.
func (s *DocumentAccounts) CreateAccount(ctx context.Context, a *Account) error {
	err := s.db.Set(ctx, AccountsCollection, a.ID, map[string]any{
		"email":        a.Email,
		"displayName":  a.DisplayName,
		"passwordHash": a.PasswordHash,
		"createdAt":    a.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByEmail looks an account up by its email address.
func (s *DocumentAccounts) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	docs, err := s.db.Find(ctx, storage.Collection(AccountsCollection).
		Where("email", storage.OpEqual, normalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrAccountNotFound
	}
	return accountFromDoc(docs[0]), nil
}

// GetAccountByID looks an account up by its ID.
func (s *DocumentAccounts) GetAccountByID(ctx context.Context, id string) (*Account, error) {
	doc, err := s.db.Get(ctx, AccountsCollection, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return accountFromDoc(doc), nil
}

func accountFromDoc(doc storage.Document) *Account {
	data := storage.Normalize(doc.Data)
	str := func(key string) string {
		s, _ := data[key].(string)
		return s
	}
	a := &Account{
		ID:           doc.ID,
		Email:        str("email"),
		DisplayName:  str("displayName"),
		PasswordHash: str("passwordHash"),
	}
	if t, err := time.Parse(time.RFC3339Nano, str("createdAt")); err == nil {
		a.CreatedAt = t
	}
	return a
}
