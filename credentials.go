package enroll

import (
	"errors"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Password strength is scored in 20-point steps, one per satisfied
// character-class check. Two satisfied checks is the floor for registration.
const (
	PasswordScoreStep = 20
	MinPasswordScore  = 40
	MinPasswordLength = 8
)

// Credentials is the raw registration form input validated before any
// provider call is made.
type Credentials struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate runs the checks in presentation order and returns the first
// failure so the form can surface a single message.
func (c Credentials) Validate() error {
	checks := []struct {
		value any
		rules []validation.Rule
	}{
		{c.Name, []validation.Rule{
			validation.Required.Error("Name is required"),
		}},
		{c.Email, []validation.Rule{
			validation.Required.Error("Email is required"),
		}},
		{c.Email, []validation.Rule{
			is.Email.Error("Enter a valid email address"),
		}},
		{c.Password, []validation.Rule{
			validation.Required.Error("Password is required"),
		}},
		{c.Password, []validation.Rule{
			validation.Length(MinPasswordLength, 0).Error("Password must be at least 8 characters."),
		}},
		{c.Password, []validation.Rule{
			validation.By(validatePasswordStrength),
		}},
		{c.ConfirmPassword, []validation.Rule{
			validation.By(ValidateStringEquals(c.Password, "Passwords do not match")),
		}},
	}

	for _, check := range checks {
		if err := validation.Validate(check.value, check.rules...); err != nil {
			return err
		}
	}

	return nil
}

func validatePasswordStrength(value any) error {
	password, _ := value.(string)
	if PasswordScore(password) < MinPasswordScore {
		return errors.New("Password is too weak, mix upper and lower case letters, digits and symbols")
	}
	return nil
}

// PasswordScore maps the five character-class checks onto a 0-100 scale.
func PasswordScore(password string) int {
	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	score := 0
	for _, ok := range []bool{
		len(password) >= MinPasswordLength,
		hasLower,
		hasUpper,
		hasDigit,
		hasSpecial,
	} {
		if ok {
			score += PasswordScoreStep
		}
	}

	return score
}

// PasswordStrengthLabel renders the score for the form's strength meter.
func PasswordStrengthLabel(score int) string {
	switch {
	case score >= 100:
		return "Strong"
	case score >= 80:
		return "Good"
	case score >= MinPasswordScore:
		return "Fair"
	default:
		return "Weak"
	}
}

// ValidateStringEquals builds an ozzo rule asserting the value matches str.
func ValidateStringEquals(str, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(message)
		}
		return nil
	}
}
