package models

import (
	"time"
)

// User roles.
const (
	RoleNodeOwner = 1
	RoleAdmin     = 2
)

// Node statuses.
const (
	StatusOffline = 0
	StatusOnline  = 1
)

// User is a registered account that owns nodes.
type User struct {
	ID           uint      `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	FirstName    string    `gorm:"not null" json:"first_name"`
	LastName     string    `gorm:"not null" json:"last_name"`
	Username     string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Phone        string    `gorm:"not null" json:"phone"`
	PasswordHash string    `gorm:"column:password;not null" json:"-"`
	IsVerified   bool      `gorm:"default:false" json:"is_verified"`
	Role         int       `gorm:"not null;default:1" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// RoleText returns the display name for the user's role.
func (u *User) RoleText() string {
	switch u.Role {
	case RoleAdmin:
		return "Admin"
	case RoleNodeOwner:
		return "Node Owner"
	}
	return "Unknown"
}

// AuthToken is a one-shot email-verification or password-reset token.
type AuthToken struct {
	ID        uint      `gorm:"column:token_id;primaryKey;autoIncrement" json:"token_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null;size:255" json:"-"`
	Purpose   string    `gorm:"not null;size:32" json:"purpose"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuthToken) TableName() string {
	return "tokens"
}

// Expired reports whether the token is past its expiry.
func (t *AuthToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Node is a physical sensor device. The secret token is unique system-wide
// and is the credential presented by the device on ingestion.
type Node struct {
	ID          string    `gorm:"column:node_id;primaryKey;size:64" json:"node_id"`
	Name        string    `gorm:"column:node_name;index;not null;size:255" json:"node_name"`
	Location    string    `gorm:"index;size:255" json:"location"`
	Description string    `json:"description"`
	Secret      string    `gorm:"column:node_token;uniqueIndex;not null;size:255" json:"-"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Status      int       `gorm:"not null;default:0" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Node) TableName() string {
	return "nodes"
}

// StatusText returns the display name for the node's status.
func (n *Node) StatusText() string {
	if n.Status == StatusOnline {
		return "Online"
	}
	return "Offline"
}

// Subscription is an email notification subscription for one location.
// One row per email address; resubscribing reactivates or moves it.
type Subscription struct {
	ID        uint      `gorm:"column:email_id;primaryKey;autoIncrement" json:"email_id"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Location  string    `gorm:"index;not null;size:255" json:"location"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "notifications"
}

// AllModels lists every entity for auto-migration.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&AuthToken{},
		&Node{},
		&Subscription{},
	}
}
