package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
	apperrors "github.com/charlesng35/authcore/pkg/errors"
)

const (
	apiKeyLength = 40
	// apiKeyAttempts bounds regeneration when a fresh key collides with an existing one.
	apiKeyAttempts = 3
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Email           string
	Password        string
	IsEmailVerified bool
}

// UpdateUserInput enumerates mutable user attributes. Nil fields are left untouched.
type UpdateUserInput struct {
	Email           *string
	Password        *string
	APIKey          *string
	IsEmailVerified *bool
}

// UserService persists user accounts.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// NormaliseEmail lower-cases and trims an email address.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create provisions a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	email := NormaliseEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:           email,
		Password:        hashed,
		IsEmailVerified: input.IsEmailVerified,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, apperrors.NewConflict("email already registered").WithInternal(err)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user.Redacted(), nil
}

// FindByEmail loads a user by email. The password hash is only selected when includePassword is set.
func (s *UserService) FindByEmail(ctx context.Context, email string, includePassword bool) (*models.User, error) {
	email = NormaliseEmail(email)
	if email == "" {
		return nil, ErrUserNotFound
	}

	query := s.db.WithContext(ctx)
	if !includePassword {
		query = query.Omit("password")
	}

	var user models.User
	err := query.Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find by email: %w", err)
	}
	return &user, nil
}

// FindByID loads a user by identifier without the password hash.
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Omit("password").Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find by id: %w", err)
	}
	return &user, nil
}

// FindByAPIKey resolves the owner of an API key.
func (s *UserService) FindByAPIKey(ctx context.Context, key string) (*models.User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Omit("password").Where("api_key = ?", key).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find by api key: %w", err)
	}
	return &user, nil
}

// Update applies the supplied partial changes and returns the refreshed user.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	updates := map[string]interface{}{}

	if input.Email != nil {
		email := NormaliseEmail(*input.Email)
		if email == "" {
			return nil, apperrors.NewBadRequest("email cannot be empty")
		}
		updates["email"] = email
	}
	if input.Password != nil {
		if strings.TrimSpace(*input.Password) == "" {
			return nil, apperrors.NewBadRequest("password cannot be empty")
		}
		hashed, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		updates["password"] = hashed
	}
	if input.APIKey != nil {
		if key := strings.TrimSpace(*input.APIKey); key == "" {
			updates["api_key"] = nil
		} else {
			updates["api_key"] = key
		}
	}
	if input.IsEmailVerified != nil {
		updates["is_email_verified"] = *input.IsEmailVerified
	}

	if len(updates) == 0 {
		return s.FindByID(ctx, id)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if field, ok := uniqueViolation(result.Error); ok {
			return nil, conflictFor(field).WithInternal(result.Error)
		}
		return nil, fmt.Errorf("user service: update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return s.FindByID(ctx, id)
}

// MarkEmailVerified flags the user's email address as verified.
func (s *UserService) MarkEmailVerified(ctx context.Context, id string) (*models.User, error) {
	verified := true
	return s.Update(ctx, id, UpdateUserInput{IsEmailVerified: &verified})
}

// RotateAPIKey issues a fresh API key for the user, replacing any previous one.
// The plaintext key is only returned here.
func (s *UserService) RotateAPIKey(ctx context.Context, id string) (string, error) {
	for attempt := 1; ; attempt++ {
		key, err := crypto.GenerateAlphanumeric(apiKeyLength)
		if err != nil {
			return "", fmt.Errorf("user service: generate api key: %w", err)
		}

		result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("api_key", key)
		if result.Error == nil {
			if result.RowsAffected == 0 {
				return "", ErrUserNotFound
			}
			return key, nil
		}
		// Only api_key changes here, so any uniqueness violation is a key collision.
		if _, ok := uniqueViolation(result.Error); !ok || attempt == apiKeyAttempts {
			if ok {
				return "", conflictFor(fieldAPIKey).WithInternal(result.Error)
			}
			return "", fmt.Errorf("user service: rotate api key: %w", result.Error)
		}
	}
}

func conflictFor(field string) *apperrors.AppError {
	switch field {
	case fieldEmail:
		return apperrors.NewConflict("email already registered")
	case fieldAPIKey:
		return apperrors.NewConflict("api key already in use")
	default:
		return apperrors.NewConflict("email or api key already in use")
	}
}
