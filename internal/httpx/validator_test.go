package httpx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testAccountReq struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    string  `json:"email" validate:"required,email"`
	Role     *string `json:"role" validate:"omitempty,role"`
}

func TestValidateStruct_ValidInput(t *testing.T) {
	role := "admin"
	errs := ValidateStruct(testAccountReq{Username: "alice", Email: "alice@x.com", Role: &role})
	assert.Empty(t, errs)
}

func TestValidateStruct_UsesJSONFieldNames(t *testing.T) {
	errs := ValidateStruct(testAccountReq{})

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.True(t, strings.Contains(fields["email"], "required"))
}

func TestValidateStruct_Rules(t *testing.T) {
	bad := "superuser"
	tests := []struct {
		name    string
		req     testAccountReq
		field   string
		message string
	}{
		{
			name:    "username too short",
			req:     testAccountReq{Username: "ab", Email: "a@x.com"},
			field:   "username",
			message: "username must be at least 3 characters",
		},
		{
			name:    "invalid email",
			req:     testAccountReq{Username: "alice", Email: "not-an-email"},
			field:   "email",
			message: "email must be a valid email address",
		},
		{
			name:    "unknown role",
			req:     testAccountReq{Username: "alice", Email: "a@x.com", Role: &bad},
			field:   "role",
			message: "role must be one of admin, user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStruct(tt.req)
			if assert.Len(t, errs, 1) {
				assert.Equal(t, tt.field, errs[0].Field)
				assert.Equal(t, tt.message, errs[0].Message)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Ban *bool `json:"ban"`
	}

	assert.NoError(t, DecodeJSON(strings.NewReader(`{"ban":true,"extra":1}`), &dst))
	if assert.NotNil(t, dst.Ban) {
		assert.True(t, *dst.Ban)
	}

	assert.Error(t, DecodeJSON(strings.NewReader(`{"ban":true}{"ban":false}`), &dst))
	assert.Error(t, DecodeJSON(strings.NewReader(`not json`), &dst))
}
