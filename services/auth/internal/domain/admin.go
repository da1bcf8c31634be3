package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrEmailNotAdmin is internal only. Callers still answer with the generic
// reset message.
var ErrEmailNotAdmin = errors.New("email is not the admin address")

// ValidationError is a client error whose Message is safe to show.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type LoginRequest struct {
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (r *LoginRequest) Validate() error {
	if r.Password == "" {
		return &ValidationError{Message: "Password is required"}
	}
	return nil
}

type ResetRequest struct {
	Email string `json:"email"`
}

func (r *ResetRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *ResetRequest) Validate() error {
	if r.Email == "" {
		return &ValidationError{Message: "Email is required"}
	}
	return nil
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (r *ResetPasswordRequest) Validate() error {
	if r.Token == "" || r.NewPassword == "" {
		return &ValidationError{Message: "Token and new password are required"}
	}
	return nil
}

// LoginResult is a freshly issued session and its signed token.
type LoginResult struct {
	Token     string
	Email     string
	ExpiresAt time.Time
	MaxAge    time.Duration
}

// ResetStatus describes a still-valid reset token. ExpiresIn is in whole
// minutes, rounded up.
type ResetStatus struct {
	Valid     bool   `json:"valid"`
	Email     string `json:"email"`
	ExpiresIn int    `json:"expiresIn"`
}

type SessionInfo struct {
	Authenticated bool      `json:"authenticated"`
	Email         string    `json:"email"`
	LoginTime     time.Time `json:"loginTime"`
	ExpiresAt     time.Time `json:"expiresAt"`
	RememberMe    bool      `json:"rememberMe"`
}
