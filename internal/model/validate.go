package model

import (
	"fmt"
	"strings"
)

// MaxKeyLength is the upper bound for chunk keys and descriptions.
const MaxKeyLength = 255

// MaxBuilderLength bounds a pinned builder ident.
const MaxBuilderLength = 64

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateChunk checks a Chunk for constraint violations.
func ValidateChunk(c *Chunk) error {
	var ve ValidationError
	validateKey(&ve, c.Key)
	validateDescription(&ve, c.Description)
	validateBuilder(&ve, c.Builder)
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateInlineChunk checks an InlineChunk for constraint violations.
func ValidateInlineChunk(c *InlineChunk) error {
	var ve ValidationError
	validateKey(&ve, c.Key)
	validateDescription(&ve, c.Description)
	validateBuilder(&ve, c.Builder)
	if strings.TrimSpace(c.Owner.Type) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "owner.type", Message: "is required"})
	}
	if strings.TrimSpace(c.Owner.ID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "owner.id", Message: "is required"})
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func validateKey(ve *ValidationError, key string) {
	switch {
	case strings.TrimSpace(key) == "":
		ve.Errors = append(ve.Errors, FieldError{Field: "key", Message: "is required"})
	case len([]rune(key)) > MaxKeyLength:
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "key",
			Message: fmt.Sprintf("must be %d characters or fewer", MaxKeyLength),
		})
	}
}

func validateDescription(ve *ValidationError, desc string) {
	if len([]rune(desc)) > MaxKeyLength {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "description",
			Message: fmt.Sprintf("must be %d characters or fewer", MaxKeyLength),
		})
	}
}

// validateBuilder accepts an empty ident or one made of letters, digits,
// '-' and '_'.
func validateBuilder(ve *ValidationError, ident string) {
	if ident == "" {
		return
	}
	if len(ident) > MaxBuilderLength {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "builder",
			Message: fmt.Sprintf("must be %d characters or fewer", MaxBuilderLength),
		})
		return
	}
	for _, r := range ident {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "builder",
				Message: fmt.Sprintf("invalid character %q", r),
			})
			return
		}
	}
}
