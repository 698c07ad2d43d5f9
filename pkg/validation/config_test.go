package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("Name", "")

	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Required("Name", "value")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_Ranges(t *testing.T) {
	tests := []struct {
		name      string
		apply     func(*ConfigValidator)
		wantError bool
	}{
		{"MinInt below", func(cv *ConfigValidator) { cv.MinInt("Depth", 0, 1) }, true},
		{"MinInt at", func(cv *ConfigValidator) { cv.MinInt("Depth", 1, 1) }, false},
		{"RangeInt inside", func(cv *ConfigValidator) { cv.RangeInt("Port", 8080, 1, 65535) }, false},
		{"RangeInt outside", func(cv *ConfigValidator) { cv.RangeInt("Port", 70000, 1, 65535) }, true},
		{"RangeDuration inside", func(cv *ConfigValidator) { cv.RangeDuration("TTL", time.Hour, time.Minute, 24*time.Hour) }, false},
		{"RangeDuration outside", func(cv *ConfigValidator) { cv.RangeDuration("TTL", time.Second, time.Minute, 24*time.Hour) }, true},
		{"Positive zero", func(cv *ConfigValidator) { cv.Positive("Pool", 0) }, true},
		{"Positive one", func(cv *ConfigValidator) { cv.Positive("Pool", 1) }, false},
		{"MinLength short", func(cv *ConfigValidator) { cv.MinLength("Secret", "abc", 16) }, true},
		{"MinLength ok", func(cv *ConfigValidator) { cv.MinLength("Secret", strings.Repeat("x", 16), 16) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			tt.apply(cv)
			if cv.HasErrors() != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v (%v)", cv.HasErrors(), tt.wantError, cv.Errors())
			}
		})
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.OneOf("Format", "xml", []string{"json", "yaml"})

	if !cv.HasErrors() {
		t.Error("Expected error for disallowed value")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.OneOf("Format", "yaml", []string{"json", "yaml"})

	if cv2.HasErrors() {
		t.Error("Expected no error for allowed value")
	}
}

func TestConfigValidator_URL(t *testing.T) {
	tests := []struct {
		value     string
		schemes   []string
		wantError bool
	}{
		{"postgres://user@localhost:5432/semnet", []string{"postgres", "postgresql"}, false},
		{"http://localhost:9000", nil, false},
		{"localhost:5432", nil, true},
		{"mysql://localhost/db", []string{"postgres"}, true},
		{"", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			cv.URL("URL", tt.value, tt.schemes...)
			if cv.HasErrors() != tt.wantError {
				t.Errorf("URL(%q) errors = %v, want error %v", tt.value, cv.Errors(), tt.wantError)
			}
		})
	}
}

func TestConfigValidator_Custom(t *testing.T) {
	sentinel := errors.New("bad value")

	cv := NewConfigValidator("TestConfig")
	cv.Custom("Field", func() error { return sentinel })

	if !errors.Is(cv.Validate(), sentinel) {
		t.Errorf("Validate() = %v, want wrapped sentinel", cv.Validate())
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.When(false, func(v *ConfigValidator) {
		v.Required("Secret", "")
	})
	if cv.HasErrors() {
		t.Error("validations ran although the condition was false")
	}

	cv.When(true, func(v *ConfigValidator) {
		v.Required("Secret", "")
	})
	if !cv.HasErrors() {
		t.Error("validations did not run although the condition was true")
	}
}

func TestConfigValidator_ValidateCollectsAll(t *testing.T) {
	cv := NewConfigValidator("ServerConfig")
	cv.Required("Addr", "").
		Positive("Pool", 0).
		OneOf("Format", "xml", []string{"json"})

	err := cv.Validate()
	if err == nil {
		t.Fatal("Expected an error")
	}
	if len(cv.Errors()) != 3 {
		t.Errorf("got %d errors, want 3", len(cv.Errors()))
	}
	for _, part := range []string{"ServerConfig.Addr", "ServerConfig.Pool", "ServerConfig.Format"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("combined error %q does not mention %s", err, part)
		}
	}

	if NewConfigValidator("Empty").Validate() != nil {
		t.Error("Expected nil for a validator with no errors")
	}
}

type fakeConfig struct{ err error }

func (f fakeConfig) Validate() error { return f.err }

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if err := ValidateConfig(fakeConfig{}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	if got := DefaultOr("", "json"); got != "json" {
		t.Errorf("DefaultOr(\"\", json) = %q", got)
	}
	if got := DefaultOr(5, 7); got != 5 {
		t.Errorf("DefaultOr(5, 7) = %d", got)
	}
	if got := DefaultOrDuration(-time.Second, time.Hour); got != time.Hour {
		t.Errorf("DefaultOrDuration(-1s, 1h) = %v", got)
	}
}
