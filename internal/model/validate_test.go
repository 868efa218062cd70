package model

import (
	"strings"
	"testing"
)

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidateChunk(t *testing.T) {
	for _, tc := range []struct {
		name      string
		chunk     Chunk
		wantField string
	}{
		{name: "Valid", chunk: Chunk{Key: "greeting", Content: "Hello"}},
		{name: "EmptyContentAllowed", chunk: Chunk{Key: "greeting"}},
		{name: "KeyRequired", chunk: Chunk{Key: ""}, wantField: "key"},
		{name: "KeyWhitespace", chunk: Chunk{Key: " \t "}, wantField: "key"},
		{name: "KeyTooLong", chunk: Chunk{Key: strings.Repeat("k", 256)}, wantField: "key"},
		{name: "DescriptionTooLong", chunk: Chunk{Key: "k", Description: strings.Repeat("d", 256)}, wantField: "description"},
		{name: "BuilderPinned", chunk: Chunk{Key: "k", Builder: "my_builder-2"}},
		{name: "BuilderBadChar", chunk: Chunk{Key: "k", Builder: "tem plate"}, wantField: "builder"},
		{name: "BuilderTooLong", chunk: Chunk{Key: "k", Builder: strings.Repeat("b", 65)}, wantField: "builder"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateChunk(&tc.chunk)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !hasFieldError(fieldErrors(t, err), tc.wantField) {
				t.Errorf("expected error on field %q, got %v", tc.wantField, err)
			}
		})
	}
}

func TestValidateInlineChunk_OwnerRequired(t *testing.T) {
	c := InlineChunk{Key: "subtitle"}
	errs := fieldErrors(t, ValidateInlineChunk(&c))
	if !hasFieldError(errs, "owner.type") || !hasFieldError(errs, "owner.id") {
		t.Fatalf("expected owner errors, got %v", errs)
	}

	c.Owner = OwnerRef{Type: "article", ID: "42"}
	if err := ValidateInlineChunk(&c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidationError_Format(t *testing.T) {
	err := ValidateChunk(&Chunk{Key: ""})
	if got := err.Error(); got != "validation failed: key: is required" {
		t.Errorf("Error() = %q", got)
	}
}

type article struct{ id string }

func (a article) OwnerType() string { return "article" }
func (a article) OwnerID() string   { return a.id }

func TestRef(t *testing.T) {
	ref := Ref(article{id: "42"})
	if ref != (OwnerRef{Type: "article", ID: "42"}) {
		t.Fatalf("Ref = %+v", ref)
	}
	if got := ref.String(); got != "article#42" {
		t.Errorf("String() = %q", got)
	}
	if Ref(ref) != ref {
		t.Error("Ref(OwnerRef) should be identity")
	}
	if !(OwnerRef{}).IsZero() {
		t.Error("zero OwnerRef should report IsZero")
	}
}
