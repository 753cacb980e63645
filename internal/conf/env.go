// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"config", "BPI_CONFIG", nil},
		{"main.debug", "BPI_DEBUG", validateEnvBool},

		// Web server
		{"webserver.port", "BPI_WEBSERVER_PORT", validateEnvPort},
		{"webserver.baseurl", "BPI_WEBSERVER_BASEURL", validateEnvURL},
		{"webserver.autotls", "BPI_WEBSERVER_AUTOTLS", validateEnvBool},

		// Sessions and sign-in
		{"security.sessionsecret", "BPI_SESSION_SECRET", validateEnvSecret},
		{"security.securecookies", "BPI_SECURE_COOKIES", validateEnvBool},
		{"security.googleauth.enabled", "BPI_GOOGLE_ENABLED", validateEnvBool},
		{"security.googleauth.clientid", "BPI_GOOGLE_CLIENTID", nil},
		{"security.googleauth.clientsecret", "BPI_GOOGLE_CLIENTSECRET", nil},

		// Database
		{"database.driver", "BPI_DATABASE_DRIVER", validateEnvDriver},
		{"database.sqlite.path", "BPI_SQLITE_PATH", nil},
		{"database.mysql.host", "BPI_MYSQL_HOST", nil},
		{"database.mysql.port", "BPI_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "BPI_MYSQL_USERNAME", nil},
		{"database.mysql.password", "BPI_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "BPI_MYSQL_DATABASE", nil},

		// Image uploads
		{"images.provider", "BPI_IMAGES_PROVIDER", validateEnvImageProvider},
		{"images.imgbb.apikey", "BPI_IMGBB_APIKEY", nil},
		{"images.s3.bucket", "BPI_S3_BUCKET", nil},
		{"images.s3.region", "BPI_S3_REGION", nil},
		{"images.s3.endpoint", "BPI_S3_ENDPOINT", validateEnvURL},
		{"images.s3.accesskeyid", "BPI_S3_ACCESS_KEY_ID", nil},
		{"images.s3.secretaccesskey", "BPI_S3_SECRET_ACCESS_KEY", nil},

		// Telemetry
		{"sentry.enabled", "BPI_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "BPI_SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("must be true/false/1/0, got %q", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("must be a number, got %q", value)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host")
	}
	return nil
}

// validateEnvSecret does not echo the value back
func validateEnvSecret(value string) error {
	if len(value) < minSessionSecretLength {
		return fmt.Errorf("must be at least %d characters", minSessionSecretLength)
	}
	return nil
}

func validateEnvDriver(value string) error {
	if !slices.Contains(supportedDrivers, strings.ToLower(strings.TrimSpace(value))) {
		return fmt.Errorf("must be one of %v, got %q", supportedDrivers, value)
	}
	return nil
}

func validateEnvImageProvider(value string) error {
	if !slices.Contains(supportedImageProviders, strings.ToLower(strings.TrimSpace(value))) {
		return fmt.Errorf("must be one of %v, got %q", supportedImageProviders, value)
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
