// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct. Missing credentials for
// optional integrations are not errors; those integrations are disabled at startup.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateWebServerSettings,
		validateSecuritySettings,
		validateDatabaseSettings,
		validateImageSettings,
		validateCacheSettings,
		validateSentrySettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *Settings) error {
	ws := &settings.WebServer
	port, err := strconv.Atoi(ws.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be between 1 and 65535, got %q", ws.Port)
	}
	if ws.BaseURL != "" {
		if u, err := url.Parse(ws.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("webserver.baseurl must be an absolute URL, got %q", ws.BaseURL)
		}
	}
	if ws.ReadTimeout < 0 {
		return fmt.Errorf("webserver.readtimeout must not be negative")
	}
	if ws.AutoTLS && settings.Security.Host == "" {
		return fmt.Errorf("webserver.autotls requires security.host")
	}
	return nil
}

func validateSecuritySettings(settings *Settings) error {
	sec := &settings.Security
	if len(sec.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("security.sessionsecret must be at least %d characters", minSessionSecretLength)
	}
	if sec.SessionMaxAge <= 0 {
		return fmt.Errorf("security.sessionmaxage must be positive")
	}
	if sec.RateLimitPerMin < 0 {
		return fmt.Errorf("security.ratelimitpermin must not be negative")
	}

	// normalize so later comparisons can be exact
	admins := make([]string, 0, len(sec.InitialAdmins))
	for _, email := range sec.InitialAdmins {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		if !strings.Contains(email, "@") {
			return fmt.Errorf("security.initialadmins contains an invalid e-mail address %q", email)
		}
		if !slices.Contains(admins, email) {
			admins = append(admins, email)
		}
	}
	sec.InitialAdmins = admins

	if sec.GoogleAuth.Enabled && (sec.GoogleAuth.ClientID == "" || sec.GoogleAuth.ClientSecret == "") {
		GetLogger().Warn("google sign-in enabled without client credentials, sign-in is disabled")
	}
	return nil
}

func validateDatabaseSettings(settings *Settings) error {
	db := &settings.Database
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.Driver {
	case DriverSQLite:
		if db.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for the sqlite driver")
		}
	case DriverMySQL:
		if db.MySQL.Host == "" || db.MySQL.Database == "" {
			return fmt.Errorf("database.mysql.host and database.mysql.database are required for the mysql driver")
		}
		if db.MySQL.Port < 1 || db.MySQL.Port > 65535 {
			return fmt.Errorf("database.mysql.port must be between 1 and 65535, got %d", db.MySQL.Port)
		}
	default:
		return fmt.Errorf("database.driver must be one of %v, got %q", supportedDrivers, db.Driver)
	}
	return nil
}

func validateImageSettings(settings *Settings) error {
	img := &settings.Images
	img.Provider = strings.ToLower(strings.TrimSpace(img.Provider))
	if img.Provider != ImageProviderNone && !slices.Contains(supportedImageProviders, img.Provider) {
		return fmt.Errorf("images.provider must be empty or one of %v, got %q", supportedImageProviders, img.Provider)
	}
	if img.MaxUploadSize <= 0 {
		return fmt.Errorf("images.maxuploadsize must be positive")
	}
	if img.Provider == ImageProviderLocal && !strings.HasPrefix(img.Local.URLPrefix, "/") {
		return fmt.Errorf("images.local.urlprefix must start with '/', got %q", img.Local.URLPrefix)
	}
	return nil
}

func validateCacheSettings(settings *Settings) error {
	if settings.Cache.AssociateTTL < 0 || settings.Cache.WorkspaceTTL < 0 {
		return fmt.Errorf("cache durations must not be negative")
	}
	return nil
}

func validateSentrySettings(settings *Settings) error {
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	return nil
}
