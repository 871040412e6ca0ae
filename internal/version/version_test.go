// ABOUTME: Tests for version identification
// ABOUTME: Checks the release constants and the log identifier built from them
package version

import (
	"regexp"
	"testing"
)

func TestConstants(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"product", Product, "Noise Pomodoro"},
		{"manufacturer", Manufacturer, "harperreed"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, tt.got)
		}
	}
}

func TestVersionIsRelease(t *testing.T) {
	if !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(Version) {
		t.Errorf("Version %q is not MAJOR.MINOR.PATCH", Version)
	}
}

func TestString(t *testing.T) {
	want := "Noise Pomodoro " + Version + " (harperreed)"
	if got := String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
