package validator

import (
	"strings"
	"testing"
)

func TestAllReturnsFirstError(t *testing.T) {
	err := All(nil, NotEmpty("", "name"), NotNegative(-1, "depth"))
	if err == nil || !strings.Contains(err.Error(), "name must not be empty") {
		t.Fatalf("got %v, want name error", err)
	}
	if err := All(nil, nil); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestMap(t *testing.T) {
	err := Map([]string{"a", ""}, NotEmpty, "vars")
	if err == nil || err.Error() != "vars[1] must not be empty" {
		t.Fatalf("got %v", err)
	}
}

func TestNoDuplicates(t *testing.T) {
	if err := NoDuplicates([]string{"a", "b", "a"}, "vars"); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := NoDuplicates([]int{1, 2}, "ids"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMatchesAllowed(t *testing.T) {
	if err := MatchesAllowed("x", []string{"a", "b"}, "mode"); err == nil {
		t.Fatalf("expected error")
	}
	if err := MatchesAllowed("a", []string{"a", "b"}, "mode"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHasNoTags(t *testing.T) {
	for _, s := range []string{"{{ x }}", "a {% if %}"} {
		if err := HasNoTags(s, "dir"); err == nil {
			t.Fatalf("HasNoTags(%q) expected error", s)
		}
	}
	if err := HasNoTags("plain/path", "dir"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
