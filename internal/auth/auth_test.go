package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/justsplit/internal/storage/sqlite"
)

func newTestAuthenticator(t *testing.T) (*PasswordAuthenticator, *DocumentAccounts) {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accounts := NewDocumentAccounts(db)
	return NewPasswordAuthenticator(accounts).WithCost(bcrypt.MinCost), accounts
}

func TestPasswordAuthenticator(t *testing.T) {
	authn, accounts := newTestAuthenticator(t)
	ctx := context.Background()

	account, err := authn.Register(ctx, "Alice@Example.com ", "Alice", "correct horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if account.ID == "" || account.Email != "alice@example.com" {
		t.Errorf("unexpected account %+v", account)
	}

	t.Run("stored account round trips", func(t *testing.T) {
		got, err := accounts.GetAccountByID(ctx, account.ID)
		if err != nil {
			t.Fatalf("GetAccountByID() error = %v", err)
		}
		if got.Email != account.Email || got.DisplayName != "Alice" || got.PasswordHash == "" {
			t.Errorf("got %+v", got)
		}
		if got.CreatedAt.IsZero() {
			t.Error("CreatedAt not decoded")
		}
	})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid credentials", email: "alice@example.com", password: "correct horse"},
		{name: "email is case insensitive", email: "ALICE@example.com", password: "correct horse"},
		{name: "wrong password", email: "alice@example.com", password: "wrong horse", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "bob@example.com", password: "correct horse", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authn.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if got.ID != account.ID {
				t.Errorf("Authenticate() ID = %s, want %s", got.ID, account.ID)
			}
		})
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := authn.Register(ctx, "alice@EXAMPLE.com", "Other", "password123")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("Register() error = %v, want ErrEmailExists", err)
		}
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := authn.Register(ctx, "carol@example.com", "Carol", "short")
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("Register() error = %v, want ErrWeakPassword", err)
		}
	})

	t.Run("unknown ID", func(t *testing.T) {
		if _, err := accounts.GetAccountByID(ctx, "missing"); !errors.Is(err, ErrAccountNotFound) {
			t.Errorf("GetAccountByID() error = %v, want ErrAccountNotFound", err)
		}
	})
}

func TestJWTManager(t *testing.T) {
	account := &Account{ID: "acc-1", Email: "alice@example.com"}

	t.Run("valid token", func(t *testing.T) {
		m := NewJWTManager("secret", time.Hour)
		token, err := m.Generate(account)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		claims, err := m.Validate(token)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if claims.AccountID != "acc-1" || claims.Email != "alice@example.com" {
			t.Errorf("unexpected claims %+v", claims)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		m := NewJWTManager("secret", -time.Minute)
		token, _ := m.Generate(account)
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _ := NewJWTManager("secret", time.Hour).Generate(account)
		if _, err := NewJWTManager("other", time.Hour).Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := NewJWTManager("secret", time.Hour).Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
		}
	})
	t.Run("foreign issuer", func(t *testing.T) {
		claims := &Claims{
			AccountID: "acc-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		if _, err := NewJWTManager("secret", time.Hour).Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
		}
	})
}
