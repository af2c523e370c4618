// Package auth is the authentication hub: password accounts, session
// tokens and the account records they are stored in.
package auth

import "context"

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the HTTP layer.
type Authenticator interface {
	// Register creates a new account with the given email and credential.
	// Returns the created account or an error if registration fails.
	Register(ctx context.Context, email, displayName, credential string) (*Account, error)

	// Authenticate verifies the account's credentials and returns the
	// account if successful.
	Authenticate(ctx context.Context, email, credential string) (*Account, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
