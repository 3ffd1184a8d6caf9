package version

import (
	"strings"
	"testing"
)

// setVars overrides the build variables for the duration of the test.
func setVars(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	})
	Version, Commit, BuildTime = version, commit, buildTime
}

func TestString(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		setVars(t, "dev", "unknown", "unknown")

		result := String()
		for _, want := range []string{"dev", "unknown", "built"} {
			if !strings.Contains(result, want) {
				t.Errorf("String() = %q, should contain %q", result, want)
			}
		}
	})

	t.Run("custom values", func(t *testing.T) {
		setVars(t, "1.2.3", "abc1234", "2025-03-01T08:00:00Z")

		expected := "1.2.3 (abc1234) built 2025-03-01T08:00:00Z"
		if result := String(); result != expected {
			t.Errorf("String() = %q, want %q", result, expected)
		}
	})
}

func TestUserAgent(t *testing.T) {
	setVars(t, "2.0.1", "abc1234", "unknown")

	if got, want := UserAgent(), "hsebcm-calendar-sync/2.0.1"; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}

func TestDefaultValues(t *testing.T) {
	// ldflags may overwrite these in release builds
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if Commit == "" {
		t.Error("Commit should not be empty")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
}
