package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		validate func(string) error
		value    string
		wantErr  bool
	}{
		{"bool true", validateEnvBool, "true", false},
		{"bool padded", validateEnvBool, " 1 ", false},
		{"bool yes rejected", validateEnvBool, "yes", true},
		{"port ok", validateEnvPort, "8080", false},
		{"port zero", validateEnvPort, "0", true},
		{"port word", validateEnvPort, "http", true},
		{"url ok", validateEnvURL, "https://bureau.example", false},
		{"url without scheme", validateEnvURL, "bureau.example", true},
		{"secret long enough", validateEnvSecret, "0123456789abcdef", false},
		{"secret too short", validateEnvSecret, "tiny", true},
		{"driver mysql", validateEnvDriver, "MySQL", false},
		{"driver unknown", validateEnvDriver, "oracle", true},
		{"provider s3", validateEnvImageProvider, "s3", false},
		{"provider unknown", validateEnvImageProvider, "dropbox", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvBindingsHaveUniqueVariables(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, b := range getEnvBindings() {
		assert.False(t, seen[b.EnvVar], "duplicate binding for %s", b.EnvVar)
		seen[b.EnvVar] = true
		assert.NotEmpty(t, b.ConfigKey)
	}
}
