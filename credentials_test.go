package enroll_test

import (
	"testing"

	"github.com/goliatone/go-enroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name        string
		credentials enroll.Credentials
		expectedErr string
	}{
		{
			name: "valid input",
			credentials: enroll.Credentials{
				Name:            "Maria Santos",
				Email:           "maria@parish.example",
				Password:        "Abcdef12",
				ConfirmPassword: "Abcdef12",
			},
		},
		{
			name: "short local-part email is still valid",
			credentials: enroll.Credentials{
				Name:            "Maria Santos",
				Email:           "a@b.co",
				Password:        "Abcdef12",
				ConfirmPassword: "Abcdef12",
			},
		},
		{
			name: "missing name",
			credentials: enroll.Credentials{
				Email:           "maria@parish.example",
				Password:        "Abcdef12",
				ConfirmPassword: "Abcdef12",
			},
			expectedErr: "Name is required",
		},
		{
			name: "missing email",
			credentials: enroll.Credentials{
				Name:            "Maria Santos",
				Password:        "Abcdef12",
				ConfirmPassword: "Abcdef12",
			},
			expectedErr: "Email is required",
		},
		{
			name: "malformed email",
			credentials: enroll.Credentials{
				Name:            "Maria Santos",
				Email:           "not-an-email",
				Password:        "Abcdef12",
				ConfirmPassword: "Abcdef12",
			},
			expectedErr: "Enter a valid email address",
		},
		{
			name: "missing password",
			credentials: enroll.Credentials{
				Name:  "Maria Santos",
				Email: "maria@parish.example",
			},
			expectedErr: "Password is required",
		},
		{
			name: "short password reports length before strength",
			credentials: enroll.Credentials{
				Name:            "Maria Santos",
				Email:           "maria@parish.example",
				Password:        "abc",
				ConfirmPassword: "abc",
			},
			expectedErr: "Password must be at least 8 characters.",
		},
		{
			name: "single character class below minimum length",
			credentials: enroll.Credentials{
				Name:            "Maria Santos",
				Email:           "maria@parish.example",
				Password:        "AAAAAAA",
				ConfirmPassword: "AAAAAAA",
			},
			expectedErr: "Password must be at least 8 characters.",
		},
		{
			name: "two classes at minimum length clears the floor",
			credentials: enroll.Credentials{
				Name:            "Maria Santos",
				Email:           "maria@parish.example",
				Password:        "AAAAAAAA",
				ConfirmPassword: "AAAAAAAA",
			},
		},
		{
			name: "two satisfied checks clears the floor",
			credentials: enroll.Credentials{
				Name:            "Maria Santos",
				Email:           "maria@parish.example",
				Password:        "abcdefgh",
				ConfirmPassword: "abcdefgh",
			},
		},
		{
			name: "confirmation mismatch",
			credentials: enroll.Credentials{
				Name:            "Maria Santos",
				Email:           "maria@parish.example",
				Password:        "Abcdef12",
				ConfirmPassword: "Abcdef13",
			},
			expectedErr: "Passwords do not match",
		},
		{
			name: "first failure wins over later ones",
			credentials: enroll.Credentials{
				Email:           "not-an-email",
				Password:        "abc",
				ConfirmPassword: "xyz",
			},
			expectedErr: "Name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.credentials.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestPasswordScore(t *testing.T) {
	tests := []struct {
		password string
		score    int
		label    string
	}{
		{"", 0, "Weak"},
		{"abc", 20, "Weak"},
		{"AAAAAAA", 20, "Weak"},
		{"AAAAAAAA", 40, "Fair"},
		{"abcdefgh", 40, "Fair"},
		{"Abcdefgh", 60, "Fair"},
		{"Abcdef12", 80, "Good"},
		{"Abcdef1!", 100, "Strong"},
		{"Ab1!", 80, "Good"},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			score := enroll.PasswordScore(tt.password)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.label, enroll.PasswordStrengthLabel(score))
		})
	}
}

func TestValidateStringEquals(t *testing.T) {
	rule := enroll.ValidateStringEquals("secret", "Passwords do not match")

	assert.NoError(t, rule("secret"))

	err := rule("other")
	assert.Error(t, err)
	assert.Equal(t, "Passwords do not match", err.Error())
}
