package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access from refresh tokens inside claims
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// MemberClaims represents the JWT claims issued to a member
type MemberClaims struct {
	MemberID  string    `json:"memberId"`
	Nickname  string    `json:"nickname"`
	Role      Role      `json:"role"`
	TokenType TokenType `json:"tokenType"`
	jwt.RegisteredClaims
}

// AuthenticatedUser represents the verified member identity attached to a
// request by the JWT middleware
type AuthenticatedUser struct {
	MemberID  string    `json:"memberId"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsAdmin reports whether the user carries the admin role
func (u *AuthenticatedUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsTokenExpired checks whether the access token already expired
func (u *AuthenticatedUser) IsTokenExpired() bool {
	return !u.ExpiresAt.IsZero() && time.Now().After(u.ExpiresAt)
}
