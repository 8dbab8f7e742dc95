package common

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/ticket-wallet/constants"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns an AppError wrapping ErrValidation, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError("VALIDATION_ERROR", v.ErrorMessage(), ErrValidation)
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

func asString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := asString(value); !ok || strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

func MaxLength(max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}

var (
	reEmail      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	rePassTypeID = regexp.MustCompile(`^pass\.[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+$`)
	reTeamID     = regexp.MustCompile(`^[A-Z0-9]{10}$`)
)

// Email accepts empty values; pair with Required when the address is mandatory.
func Email(fieldName string, value interface{}) *ValidationError {
	str, ok := asString(value)
	if !ok || str == "" {
		return nil
	}
	if !reEmail.MatchString(strings.TrimSpace(str)) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a valid email address"}
	}
	return nil
}

func TimezoneOffset(fieldName string, value interface{}) *ValidationError {
	str, ok := asString(value)
	if !ok || !ValidOffset(str) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be an offset like +03:00"}
	}
	return nil
}

func PassTypeIdentifier(fieldName string, value interface{}) *ValidationError {
	str, ok := asString(value)
	if !ok || !rePassTypeID.MatchString(str) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must look like pass.com.example.ticket"}
	}
	return nil
}

func TeamIdentifier(fieldName string, value interface{}) *ValidationError {
	str, ok := asString(value)
	if !ok || !reTeamID.MatchString(str) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be 10 uppercase letters or digits"}
	}
	return nil
}

// Category accepts empty values and any label Canonicalize understands.
func Category(fieldName string, value interface{}) *ValidationError {
	str, ok := asString(value)
	if !ok || str == "" {
		return nil
	}
	if _, known := constants.Canonicalize(str); !known {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must be one of " + strings.Join(constants.AsStringSlice(), ", "),
		}
	}
	return nil
}
