// Package identity wraps the external identity provider. Credential storage,
// password hashing, and token minting all live on the provider's side; this
// package only calls it and verifies the tokens it issues.
package identity

import (
	"context"
	"errors"

	"github.com/gofrs/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrProviderDown       = errors.New("identity provider unavailable")
)

// User is the provider's view of an account. Referenced by id only; never
// persisted here.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

// Session is the token bundle issued on sign-up, sign-in, and refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// Claims are the verified contents of an access token.
type Claims struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// Provider is the remote collaborator contract.
type Provider interface {
	SignUp(ctx context.Context, email, password, fullName string) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
}

// Verifier checks access tokens locally, without a provider round trip.
type Verifier interface {
	VerifyToken(tokenString string) (*Claims, error)
}
