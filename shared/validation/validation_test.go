package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,password"`
}

type codeForm struct {
	Code string `json:"code" validate:"required,len=6,digits"`
}

func TestStruct_Valid(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(signupForm{Email: "a@b.com", Password: "Secr3t!23"}))
	assert.NoError(t, v.Struct(codeForm{Code: "012345"}))
}

func TestStruct_FieldErrors(t *testing.T) {
	v := New()

	err := v.Struct(signupForm{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	fields, ok := err.(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, []string{"email must be a valid email address"}, fields["email"])
	require.Len(t, fields["password"], 1)
	assert.Contains(t, fields["password"][0], "password must be at least 8 characters")
}

func TestStruct_CustomRules(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		form    any
		field   string
		message string
	}{
		{
			name:    "code with letters",
			form:    codeForm{Code: "12a456"},
			field:   "code",
			message: "code must contain only numbers",
		},
		{
			name:    "signed code",
			form:    codeForm{Code: "-12345"},
			field:   "code",
			message: "code must contain only numbers",
		},
		{
			name:    "code too short",
			form:    codeForm{Code: "1234"},
			field:   "code",
			message: "code must be 6 characters in length",
		},
		{
			name:    "password without digits",
			form:    signupForm{Email: "a@b.com", Password: "onlyletters"},
			field:   "password",
			message: "password must contain at least one letter and one number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.form)
			require.Error(t, err)

			fields := err.(FieldErrors)
			assert.Equal(t, []string{tt.message}, fields[tt.field])
		})
	}
}

func TestFieldErrors_Error(t *testing.T) {
	err := FieldErrors{
		"password": {"password is a required field"},
		"email":    {"email must be a valid email address"},
	}

	assert.Equal(t,
		"validation failed: email must be a valid email address; password is a required field",
		err.Error(),
	)
}
