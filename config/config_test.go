package config

import (
	"os"
	"testing"
)

func TestGetEnvDefaults(t *testing.T) {
	os.Unsetenv("GODECK_TEST_MISSING")

	if got := getEnv("GODECK_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %s", got)
	}

	t.Setenv("GODECK_TEST_PRESENT", "value")
	if got := getEnv("GODECK_TEST_PRESENT", "fallback"); got != "value" {
		t.Errorf("Expected value, got %s", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("GODECK_TEST_INT", "1280")
	if got := getEnvInt("GODECK_TEST_INT", 1920); got != 1280 {
		t.Errorf("Expected 1280, got %d", got)
	}

	// Unparseable values fall back to the default
	t.Setenv("GODECK_TEST_INT", "wide")
	if got := getEnvInt("GODECK_TEST_INT", 1920); got != 1920 {
		t.Errorf("Expected 1920, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("GODECK_TEST_BOOL", "false")
	if got := getEnvBool("GODECK_TEST_BOOL", true); got {
		t.Error("Expected false")
	}

	t.Setenv("GODECK_TEST_BOOL", "not-a-bool")
	if got := getEnvBool("GODECK_TEST_BOOL", true); !got {
		t.Error("Expected default true for unparseable value")
	}
}
