package models

import (
	"time"
)

// RefreshToken is a stored refresh JWT. Each one is usable once: refreshing
// revokes it and issues a successor.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Active reports whether the token can still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}

// Revoke marks the token used and expires it at now.
func (t *RefreshToken) Revoke(now time.Time) {
	t.IsRevoked = true
	if now.Before(t.ExpiresAt) {
		t.ExpiresAt = now.UTC()
	}
}
