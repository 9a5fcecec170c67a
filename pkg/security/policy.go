package security

import (
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy is the configurable password rule set. Only the length rule is on by default.
type PasswordPolicy struct {
	MinLength        int  `mapstructure:"min_length"`
	RequireUppercase bool `mapstructure:"require_uppercase"`
	RequireLowercase bool `mapstructure:"require_lowercase"`
	RequireDigits    bool `mapstructure:"require_digits"`
	RequireSpecial   bool `mapstructure:"require_special"`
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 4}
}

// PolicyError lists every rule a password broke.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password must " + strings.Join(e.Violations, ", ")
}

func (p PasswordPolicy) Validate(password string) error {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	var violations []string
	if len([]rune(password)) < p.MinLength {
		violations = append(violations, fmt.Sprintf("be at least %d characters long", p.MinLength))
	}
	if p.RequireUppercase && !upper {
		violations = append(violations, "contain an uppercase letter")
	}
	if p.RequireLowercase && !lower {
		violations = append(violations, "contain a lowercase letter")
	}
	if p.RequireDigits && !digit {
		violations = append(violations, "contain a digit")
	}
	if p.RequireSpecial && !special {
		violations = append(violations, "contain a special character")
	}

	if len(violations) > 0 {
		return &PolicyError{Violations: violations}
	}
	return nil
}
