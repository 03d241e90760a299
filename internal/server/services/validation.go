package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/taskapp/internal/common"
	"github.com/go-playground/validator/v10"
)

const minPasswordLength = 7

// bcrypt rejects longer input.
const maxPasswordBytes = 72

var validate = validator.New()

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkEmail(email string) *common.FieldError {
	if email == "" {
		return &common.FieldError{Field: "email", Message: "email is required"}
	}
	if err := validate.Var(email, "email"); err != nil {
		return &common.FieldError{Field: "email", Message: "Email is invalid"}
	}
	return nil
}

func checkName(name string) *common.FieldError {
	if name == "" {
		return &common.FieldError{Field: "name", Message: "name is required"}
	}
	return nil
}

func checkAge(age int) *common.FieldError {
	if age < 0 {
		return &common.FieldError{Field: "age", Message: "Age must be a positive number"}
	}
	return nil
}

// checkPasswordRules expects an already trimmed password.
func checkPasswordRules(password string) *common.FieldError {
	if password == "" {
		return &common.FieldError{Field: "password", Message: "password is required"}
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return &common.FieldError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	if len(password) > maxPasswordBytes {
		return &common.FieldError{Field: "password", Message: fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes)}
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return &common.FieldError{Field: "password", Message: `Please don't use "password"`}
	}
	return nil
}

func checkDescription(description string) *common.FieldError {
	if description == "" {
		return &common.FieldError{Field: "description", Message: "description is required"}
	}
	return nil
}

// collect drops nil results and builds a ValidationError from the rest.
func collect(checks ...*common.FieldError) error {
	var fields []common.FieldError
	for _, c := range checks {
		if c != nil {
			fields = append(fields, *c)
		}
	}
	return common.NewValidationError(fields...)
}

// rejectUnknown fails with one FieldError per key outside allowed.
func rejectUnknown(fields map[string]json.RawMessage, allowed []string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	rejected := common.DisallowedFields(keys, allowed)
	if len(rejected) == 0 {
		return nil
	}
	errs := make([]common.FieldError, 0, len(rejected))
	for _, k := range rejected {
		errs = append(errs, common.FieldError{Field: k, Message: "field cannot be updated"})
	}
	return common.NewValidationError(errs...)
}

// decodeField unmarshals one patch value, reporting a type mismatch as a
// FieldError on key.
func decodeField(fields map[string]json.RawMessage, key string, dst any) *common.FieldError {
	raw := fields[key]
	if string(raw) == "null" {
		return &common.FieldError{Field: key, Message: "invalid value"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &common.FieldError{Field: key, Message: "invalid value"}
	}
	return nil
}
