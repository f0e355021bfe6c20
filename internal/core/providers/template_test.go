package providers

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveScalarContext(t *testing.T) {
	rctx := &Context{Values: map[string]any{"content": "hi"}}

	got, err := Resolve("{{content}}", rctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "hi" {
		t.Errorf("expected %q, got %v", "hi", got)
	}
}

func TestResolveMissingContextValue(t *testing.T) {
	got, err := Resolve("{{missing}}", &Context{Values: map[string]any{}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty string for missing placeholder, got %v", got)
	}
}

func TestResolveInlineSubstitution(t *testing.T) {
	rctx := &Context{Values: map[string]any{
		"session_id": "abc",
		"model":      "m1",
		"count":      float64(3),
	}}

	got, err := Resolve("session {{session_id}} model {{model}} n={{count}} x={{gone}}", rctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := "session abc model m1 n=3 x="
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestResolvePreservesStructuredValues(t *testing.T) {
	messages := []any{
		map[string]any{"role": "user", "content": "hello"},
		map[string]any{"role": "assistant", "content": "hi"},
	}
	rctx := &Context{Values: map[string]any{"messages": messages}}

	got, err := Resolve("{{messages}}", rctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !reflect.DeepEqual(got, messages) {
		t.Errorf("structured value not preserved: %v", got)
	}
}

func TestResolveShapePreserving(t *testing.T) {
	template := map[string]any{
		"model": "{{model}}",
		"options": map[string]any{
			"temperature": 0.5,
			"tags":        []any{"{{tag}}", "fixed"},
		},
	}
	rctx := &Context{Values: map[string]any{"model": "m1", "tag": "t"}}

	got, err := Resolve(template, rctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := map[string]any{
		"model": "m1",
		"options": map[string]any{
			"temperature": 0.5,
			"tags":        []any{"t", "fixed"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("shape not preserved:\n got %v\nwant %v", got, want)
	}
}

func TestResolveUserField(t *testing.T) {
	rctx := &Context{
		UserField: func(key string) (string, error) {
			if key == "api_key" {
				return "secret", nil
			}
			return "", &UnknownUserFieldError{Provider: "p", Field: key}
		},
	}

	got, err := Resolve("[[[api_key]]]", rctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "secret" {
		t.Errorf("expected resolved user field, got %v", got)
	}

	got, err = Resolve("Bearer [[[api_key]]]", rctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "Bearer secret" {
		t.Errorf("expected inline user field, got %v", got)
	}
}

func TestResolveUnknownUserField(t *testing.T) {
	rctx := &Context{
		UserField: func(key string) (string, error) {
			return "", &UnknownUserFieldError{Provider: "p", Field: key}
		},
	}

	_, err := Resolve("[[[nope]]]", rctx)
	var unknownErr *UnknownUserFieldError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownUserFieldError, got %v", err)
	}
	if unknownErr.Field != "nope" {
		t.Errorf("expected field 'nope', got %q", unknownErr.Field)
	}
}

func TestResolveMissingUserFieldPropagates(t *testing.T) {
	rctx := &Context{
		Values: map[string]any{"content": "hi"},
		UserField: func(key string) (string, error) {
			return "", &MissingUserFieldError{Provider: "p", Field: key, Prompt: "enter it", Scope: "provider"}
		},
	}

	_, err := Resolve(map[string]any{"auth": "[[[token]]]", "content": "{{content}}"}, rctx)
	var missingErr *MissingUserFieldError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected MissingUserFieldError, got %v", err)
	}
	if missingErr.Prompt != "enter it" {
		t.Errorf("expected prompt carried, got %q", missingErr.Prompt)
	}
}
