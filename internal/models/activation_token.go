package models

import "time"

// ActivationToken is a single-use code proving control of a user's email address.
// Only the SHA-256 digest of the code is stored.
type ActivationToken struct {
	BaseModel

	UserID    string     `gorm:"size:36;not null;index" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenHash string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	IsUsed    bool       `gorm:"not null;default:false" json:"is_used"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}
