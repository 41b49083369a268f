package models

// User is an account that can authenticate against the service.
// Password holds the bcrypt hash and is never serialised.
type User struct {
	BaseModel

	Email           string  `gorm:"uniqueIndex;size:320;not null" json:"email"`
	Password        string  `gorm:"size:255;not null" json:"-"`
	IsEmailVerified bool    `gorm:"not null;default:false" json:"is_email_verified"`
	APIKey          *string `gorm:"uniqueIndex;size:64" json:"-"`
}

// Redacted returns a copy of the user with the password hash removed.
func (u *User) Redacted() *User {
	if u == nil {
		return nil
	}
	cpy := *u
	cpy.Password = ""
	if u.APIKey != nil {
		key := *u.APIKey
		cpy.APIKey = &key
	}
	return &cpy
}

// HasAPIKey reports whether an API key has been issued for the user.
func (u *User) HasAPIKey() bool {
	return u != nil && u.APIKey != nil && *u.APIKey != ""
}
