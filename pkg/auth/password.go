package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/alexedwards/argon2id"
)

const (
	MinPasswordLength = 8
	passwordSymbols   = `!@#$%^&*(),.?":{}|<>`
)

var ErrWeakPassword = errors.New("password does not meet requirements")

// PasswordPolicyError lists every unmet rule.
type PasswordPolicyError struct {
	Problems []string
}

func (e *PasswordPolicyError) Error() string {
	return "password must " + strings.Join(e.Problems, ", ")
}

func (e *PasswordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

// ValidatePassword enforces length plus upper, lower, digit and symbol classes.
func ValidatePassword(password string) error {
	var problems []string

	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("be at least %d characters long", MinPasswordLength))
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if !upper {
		problems = append(problems, "contain at least one uppercase letter")
	}
	if !lower {
		problems = append(problems, "contain at least one lowercase letter")
	}
	if !digit {
		problems = append(problems, "contain at least one number")
	}
	if !symbol {
		problems = append(problems, "contain at least one special character")
	}

	if len(problems) > 0 {
		return &PasswordPolicyError{Problems: problems}
	}
	return nil
}

// hashParams is a variable so tests can use cheaper parameters.
var hashParams = argon2id.DefaultParams

func HashPassword(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, hashParams)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}

func ComparePassword(password, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("comparing password: %w", err)
	}
	return ok, nil
}
