package models

import (
	"strings"
	"time"
)

// Account is a login identity.
type Account struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Profile is the role-tagged extension of an Account.
type Profile struct {
	ID         string    `db:"id" json:"id"`
	AccountID  string    `db:"account_id" json:"account_id"`
	Role       Role      `db:"role" json:"role"`
	Department string    `db:"department" json:"department"`
	Phone      string    `db:"phone" json:"phone"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Member joins an account with its profile; most reads need both.
type Member struct {
	ProfileID    string `db:"profile_id" json:"profile_id"`
	AccountID    string `db:"account_id" json:"account_id"`
	Username     string `db:"username" json:"username"`
	Email        string `db:"email" json:"email"`
	FirstName    string `db:"first_name" json:"first_name"`
	LastName     string `db:"last_name" json:"last_name"`
	Role         Role   `db:"role" json:"role"`
	Active       bool   `db:"active" json:"active"`
	PasswordHash string `db:"password_hash" json:"-"`
}

// DisplayName is "First Last", falling back to the username.
func (m Member) DisplayName() string {
	return DisplayName(m.FirstName, m.LastName, m.Username)
}

// DisplayName composes a person's visible name.
func DisplayName(first, last, username string) string {
	if full := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last)); full != "" {
		return full
	}
	return username
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
