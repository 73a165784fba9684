package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusBanned   UserStatus = "banned"
	StatusInactive UserStatus = "inactive"
)

func (s UserStatus) IsValid() bool {
	return s == StatusActive || s == StatusBanned || s == StatusInactive
}

type User struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Principal returns the identity used for authorization decisions
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role}
}

// RefreshToken is the persisted form of an issued refresh token. Only the hash is stored.
type RefreshToken struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// IsUsable reports whether the token is neither revoked nor expired at now
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
