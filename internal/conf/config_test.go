package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// validSettings returns settings that pass validation.
func validSettings() *Settings {
	return &Settings{
		Main:      MainSettings{Name: "Bureau"},
		WebServer: WebServerSettings{Port: "8080", BaseURL: "http://localhost:8080", ReadTimeout: 30 * time.Second},
		Security: SecuritySettings{
			SessionSecret: "0123456789abcdef0123456789abcdef",
			SessionMaxAge: time.Hour,
		},
		Database: DatabaseSettings{Driver: DriverSQLite, SQLite: SQLiteSettings{Path: "bpi.db"}},
		Images:   ImageSettings{MaxUploadSize: 1 << 20, Local: LocalImageSettings{Path: "uploads", URLPrefix: "/uploads"}},
		Cache:    CacheSettings{AssociateTTL: time.Second},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid defaults", func(*Settings) {}, ""},
		{"port out of range", func(s *Settings) { s.WebServer.Port = "70000" }, "webserver.port"},
		{"port not numeric", func(s *Settings) { s.WebServer.Port = "http" }, "webserver.port"},
		{"relative base url", func(s *Settings) { s.WebServer.BaseURL = "localhost" }, "webserver.baseurl"},
		{"autotls without host", func(s *Settings) { s.WebServer.AutoTLS = true }, "webserver.autotls"},
		{"autotls with host", func(s *Settings) {
			s.WebServer.AutoTLS = true
			s.Security.Host = "bureau.example"
		}, ""},
		{"short session secret", func(s *Settings) { s.Security.SessionSecret = "short" }, "sessionsecret"},
		{"unknown driver", func(s *Settings) { s.Database.Driver = "postgres" }, "database.driver"},
		{"mysql without host", func(s *Settings) {
			s.Database.Driver = DriverMySQL
			s.Database.MySQL = MySQLSettings{Database: "bpi", Port: 3306}
		}, "database.mysql.host"},
		{"unknown image provider", func(s *Settings) { s.Images.Provider = "dropbox" }, "images.provider"},
		{"local prefix without slash", func(s *Settings) {
			s.Images.Provider = ImageProviderLocal
			s.Images.Local.URLPrefix = "uploads"
		}, "urlprefix"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
		{"bad admin email", func(s *Settings) { s.Security.InitialAdmins = []string{"nobody"} }, "initialadmins"},
		{"google enabled without credentials is not fatal", func(s *Settings) { s.Security.GoogleAuth.Enabled = true }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettingsNormalizesAdmins(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Security.InitialAdmins = []string{"  Chief@Bureau.gov ", "chief@bureau.gov", "", "agent@bureau.gov"}
	s.Database.Driver = " SQLite "

	require.NoError(t, ValidateSettings(s))
	assert.Equal(t, []string{"chief@bureau.gov", "agent@bureau.gov"}, s.Security.InitialAdmins)
	assert.Equal(t, DriverSQLite, s.Database.Driver)
}

func TestSettingsHelpers(t *testing.T) {
	t.Parallel()

	s := validSettings()
	assert.False(t, s.GoogleAuthConfigured())

	s.Security.GoogleAuth = GoogleAuth{Enabled: true, ClientID: "id", ClientSecret: "secret"}
	assert.True(t, s.GoogleAuthConfigured())
	assert.Equal(t, "http://localhost:8080/auth/google/callback", s.CallbackURL("google"))

	s.Security.GoogleAuth.RedirectURI = "https://bureau.example/cb"
	assert.Equal(t, "https://bureau.example/cb", s.CallbackURL("google"))

	s.WebServer.Listen = "127.0.0.1"
	assert.Equal(t, "127.0.0.1:8080", s.ListenAddress())
}

func TestSaveYAMLConfigIsReadable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("old: true\n"), 0o600))

	s := validSettings()
	s.Security.InitialAdmins = []string{"chief@bureau.gov"}
	require.NoError(t, SaveYAMLConfig(path, s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old: true")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "security")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestGenerateRandomSecret(t *testing.T) {
	t.Parallel()

	a, b := GenerateRandomSecret(), GenerateRandomSecret()
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

// Load uses the global viper instance, so these tests do not run in parallel.
func TestLoadCreatesDefaultConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Setenv("BPI_CONFIG", path)
	t.Setenv("BPI_WEBSERVER_PORT", "9090")

	settings, err := Load()
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, "9090", settings.WebServer.Port)
	assert.Equal(t, DriverSQLite, settings.Database.Driver)
	assert.Equal(t, 30*time.Second, settings.Cache.AssociateTTL)
	assert.Equal(t, 168*time.Hour, settings.Security.SessionMaxAge)
	assert.Len(t, settings.Security.SessionSecret, 43)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	assert.Same(t, settings, GetSettings())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), settings.Security.SessionSecret, "generated secret must be persisted")
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600))
	t.Setenv("BPI_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}
