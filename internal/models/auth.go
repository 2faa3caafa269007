package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a profile.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and profile info.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	Profile      ProfileInfo `json:"profile"`
	IssuedAt     time.Time   `json:"issued_at"`
}

// RegisterRequest is the public application/registration payload. It
// creates both the profile and a pending enrollment in one flow.
type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	FullName      string `json:"full_name" validate:"required"`
	Phone         string `json:"phone"`
	ProgramID     string `json:"program_id" validate:"required"`
	Motivation    string `json:"motivation"`
	IsScholarship bool   `json:"is_scholarship"`
	IP            string `json:"-"`
	UserAgent     string `json:"-"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ProfileInfo describes the authenticated profile in responses.
type ProfileInfo struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FullName   string      `json:"full_name"`
	Role       ProfileRole `json:"role"`
	IsApproved bool        `json:"is_approved"`
	IsActive   bool        `json:"is_active"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string      `json:"user_id"`
	Role     ProfileRole `json:"role"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	jwt.RegisteredClaims
}
