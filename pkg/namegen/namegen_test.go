package namegen

import (
	"regexp"
	"testing"
)

func TestNewFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z]+-[a-z]+-\d{1,2}$`)
	for i := 0; i < 100; i++ {
		name := New()
		if !pattern.MatchString(name) {
			t.Fatalf("unexpected name format: %q", name)
		}
	}
}

func TestNewVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		seen[New()] = struct{}{}
	}
	// With ~96k combinations, 200 draws should not collapse to a handful.
	if len(seen) < 50 {
		t.Errorf("expected varied names, got %d distinct out of 200", len(seen))
	}
}
