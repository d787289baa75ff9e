package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError reports a single policy violation with a stable
// code clients can branch on.
type PasswordValidationError struct {
	Code    string
	Message string
}

func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordCheck inspects a candidate password and returns the violation, or
// nil when the password satisfies the check.
type PasswordCheck func(password string) error

// PasswordValidator runs checks in order and stops at the first violation.
type PasswordValidator struct {
	checks []PasswordCheck
}

func NewPasswordValidator(checks ...PasswordCheck) *PasswordValidator {
	return &PasswordValidator{checks: append([]PasswordCheck(nil), checks...)}
}

func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, check := range v.checks {
		if err := check(password); err != nil {
			return err
		}
	}
	return nil
}

// MinLength requires at least n runes.
func MinLength(n int) PasswordCheck {
	return func(password string) error {
		if len([]rune(password)) < n {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", n),
			}
		}
		return nil
	}
}

// MixedCharacterClasses requires runes from at least n of the four classes
// upper, lower, digit, and symbol.
func MixedCharacterClasses(n int) PasswordCheck {
	return func(password string) error {
		if n <= 0 {
			return nil
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
			case unicode.IsSymbol(r) || unicode.IsPunct(r):
				symbol = true
			}
		}

		classes := 0
		for _, present := range []bool{upper, lower, digit, symbol} {
			if present {
				classes++
			}
		}

		if classes < n {
			return &PasswordValidationError{
				Code:    "character_classes",
				Message: fmt.Sprintf("password must include at least %d character types", n),
			}
		}
		return nil
	}
}

// StrengthScore requires a minimum zxcvbn score between 1 and 4. User inputs
// such as the email and username count against the password.
func StrengthScore(n int, userInputs ...string) PasswordCheck {
	return func(password string) error {
		if n <= 0 {
			return nil
		}
		if n > 4 {
			n = 4
		}

		if zxcvbn.PasswordStrength(password, userInputs).Score < n {
			return &PasswordValidationError{
				Code:    "weak_password",
				Message: "password is too weak; choose a more complex value",
			}
		}
		return nil
	}
}
