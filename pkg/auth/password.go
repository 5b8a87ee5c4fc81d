package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 14
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordPolicyError lists every rule a candidate password broke. Its
// message stays generic; Problems is for logs and tests.
type PasswordPolicyError struct {
	Problems []string
}

func (e *PasswordPolicyError) Error() string {
	return "password does not meet the account password policy"
}

// PasswordPolicy describes what a new account password must contain
type PasswordPolicy struct {
	MinLength     int
	MaxLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	RejectCommon  bool
}

// DefaultPasswordPolicy is applied to provisioned accounts and password changes
var DefaultPasswordPolicy = PasswordPolicy{
	MinLength:     MinPasswordLen,
	MaxLength:     MaxPasswordLen,
	RequireUpper:  true,
	RequireLower:  true,
	RequireDigit:  true,
	RequireSymbol: true,
	RejectCommon:  true,
}

var commonPasswords = toSet(
	"password", "password1", "password123", "password123!", "passw0rd",
	"12345678", "123456789", "qwerty123", "letmein1", "welcome1",
	"admin123", "trustno1", "iloveyou", "sunshine", "football",
	"changeme", "p@ssw0rd", "qwertyuiop",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Check returns a *PasswordPolicyError when password breaks any rule
func (p PasswordPolicy) Check(password string) error {
	var problems []string

	n := len([]rune(password))
	if p.MinLength > 0 && n < p.MinLength {
		problems = append(problems, fmt.Sprintf("shorter than %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		problems = append(problems, fmt.Sprintf("longer than %d characters", p.MaxLength))
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
		digit = digit || unicode.IsDigit(r)
		symbol = symbol || unicode.IsPunct(r) || unicode.IsSymbol(r)
	}
	for _, rule := range []struct {
		required, present bool
		problem           string
	}{
		{p.RequireUpper, upper, "no uppercase letter"},
		{p.RequireLower, lower, "no lowercase letter"},
		{p.RequireDigit, digit, "no digit"},
		{p.RequireSymbol, symbol, "no symbol"},
	} {
		if rule.required && !rule.present {
			problems = append(problems, rule.problem)
		}
	}

	if p.RejectCommon {
		if _, ok := commonPasswords[strings.ToLower(password)]; ok {
			problems = append(problems, "too common")
		}
	}

	if len(problems) > 0 {
		return &PasswordPolicyError{Problems: problems}
	}
	return nil
}

// ValidatePassword checks password against DefaultPasswordPolicy
func ValidatePassword(password string) error {
	return DefaultPasswordPolicy.Check(password)
}

// BcryptHasher hashes with a fixed bcrypt cost. Zero cost means BcryptCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	cost := h.Cost
	if cost == 0 {
		cost = BcryptCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare returns nil only when password matches hashedPassword
func (h BcryptHasher) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
