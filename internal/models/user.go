package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the single persisted account record. Locally registered accounts
// carry a bcrypt hash; accounts created through GitHub OAuth carry linkage
// fields instead. An account may have both after a later local password set.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email          string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password       *string        `gorm:"size:255" json:"-"`
	Name           string         `gorm:"size:255" json:"name"`
	AvatarURL      string         `gorm:"size:512" json:"avatar_url,omitempty"`
	GitHubID       *string        `gorm:"column:github_id;size:255;index" json:"-"`
	GitHubUsername *string        `gorm:"column:github_username;size:255" json:"github_username,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasPassword reports whether the account can sign in locally.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}
