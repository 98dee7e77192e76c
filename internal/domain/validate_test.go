package domain

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Name  string `validate:"required,max=10"`
	Email string `validate:"omitempty,email"`
	Kind  string `validate:"omitempty,oneof=a b"`
}

func TestValidate(t *testing.T) {
	if err := Validate(sample{Name: "ok"}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	err := Validate(sample{Email: "nope", Kind: "c"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	for _, want := range []string{"name is required", "email must be a valid email", "kind must be one of"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
