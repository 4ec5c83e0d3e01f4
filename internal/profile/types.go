package profile

import (
	"errors"
	"time"
)

// Profile is the account record behind an authenticated user. Credits meter
// pitch generations for free-tier users; Pro accounts are unmetered.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Skills    []string  `json:"skills,omitempty"`
	Pro       bool      `json:"is_pro"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

// Entitled reports whether the profile may generate a pitch at all.
func (p Profile) Entitled() bool {
	return p.Pro || p.Credits > 0
}

var (
	ErrNotFound       = errors.New("profile: not found")
	ErrInvalidCredits = errors.New("profile: credits must be >= 0")
)
