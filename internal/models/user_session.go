package models

import "time"

// UserSession records a refresh token issued to a user. At most one row per user is active;
// superseded rows are kept with IsActive=false.
type UserSession struct {
	BaseModel

	UserID           string     `gorm:"size:36;not null;index" json:"user_id"`
	User             *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	RefreshTokenHash string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	IsActive         bool       `gorm:"not null;index" json:"is_active"`
	IPAddress        string     `gorm:"size:64" json:"ip_address"`
	UserAgent        string     `gorm:"size:512" json:"user_agent"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
}
