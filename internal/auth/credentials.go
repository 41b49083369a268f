package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/internal/services"
	"github.com/charlesng35/authcore/pkg/crypto"
	apperrors "github.com/charlesng35/authcore/pkg/errors"
)

// UserStore is the subset of user persistence the auth flows rely on.
type UserStore interface {
	Create(ctx context.Context, input services.CreateUserInput) (*models.User, error)
	FindByEmail(ctx context.Context, email string, includePassword bool) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id string) (*models.User, error)
}

const dummyPassword = "authcore-timing-equaliser"

// dummyHash is compared against when the email is unknown so both failure paths cost one bcrypt round.
var dummyHash = sync.OnceValue(func() string {
	hash, err := crypto.HashPassword(dummyPassword)
	if err != nil {
		panic(fmt.Sprintf("credential verifier: hash dummy password: %v", err))
	}
	return hash
})

// CredentialVerifier checks email/password pairs against stored users.
type CredentialVerifier struct {
	users UserStore
}

// NewCredentialVerifier constructs a verifier backed by the supplied user store.
func NewCredentialVerifier(users UserStore) (*CredentialVerifier, error) {
	if users == nil {
		return nil, errors.New("credential verifier: user store is required")
	}
	return &CredentialVerifier{users: users}, nil
}

// Verify returns the matching user with the password hash stripped.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*models.User, error) {
	user, err := v.users.FindByEmail(ctx, services.NormaliseEmail(email), true)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			crypto.VerifyPassword(dummyHash(), password)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("credential verifier: find user: %w", err)
	}

	if user.Password == "" || !crypto.VerifyPassword(user.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return user.Redacted(), nil
}
