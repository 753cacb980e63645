// config.go: settings structs and loading for the bureau dossier service
package conf

import (
	"crypto/rand"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/peepybureau/bpi/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings holds process-wide identity.
type MainSettings struct {
	Name  string `yaml:"name"`  // shown in page titles and logs
	Debug bool   `yaml:"debug"` // verbose logging and echo debug mode
}

// WebServerSettings configures the HTTP listener.
type WebServerSettings struct {
	Listen      string        `yaml:"listen"`      // bind address, empty for all interfaces
	Port        string        `yaml:"port"`        // listen port
	BaseURL     string        `yaml:"baseurl"`     // public URL, used for OAuth callbacks
	ReadTimeout time.Duration `yaml:"readtimeout"` // read timeout for non-streaming requests
	AutoTLS     bool          `yaml:"autotls"`     // obtain certificates for security.host from Let's Encrypt
	CertCache   string        `yaml:"certcache"`   // autocert cache directory, empty uses the config directory
}

// GoogleAuth holds the federated sign-in credentials.
type GoogleAuth struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"clientid"`
	ClientSecret string `yaml:"clientsecret"`
	RedirectURI  string `yaml:"redirecturi"`
}

// SecuritySettings configures sessions and sign-in.
type SecuritySettings struct {
	Host            string        `yaml:"host"`            // cookie host, empty uses the request host
	SessionSecret   string        `yaml:"sessionsecret"`   // derives cookie keys
	SessionMaxAge   time.Duration `yaml:"sessionmaxage"`   // lifetime of the admin session
	SecureCookies   bool          `yaml:"securecookies"`   // set the Secure flag, required behind TLS
	GoogleAuth      GoogleAuth    `yaml:"googleauth"`      // federated sign-in
	InitialAdmins   []string      `yaml:"initialadmins"`   // seeds allowedAdmins when no settings exist
	RateLimitPerMin int           `yaml:"ratelimitpermin"` // upload and stream budget per client
}

// SQLiteSettings configures the embedded database.
type SQLiteSettings struct {
	Path string `yaml:"path"`
}

// MySQLSettings configures a MySQL database.
type MySQLSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DatabaseSettings selects and configures the datastore driver.
type DatabaseSettings struct {
	Driver string         `yaml:"driver"` // sqlite or mysql
	SQLite SQLiteSettings `yaml:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql"`
}

// ImgBBSettings configures the imgbb upload backend.
type ImgBBSettings struct {
	APIKey   string        `yaml:"apikey"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// S3Settings configures the S3-compatible upload backend.
type S3Settings struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`  // custom endpoint for MinIO and friends
	Prefix          string `yaml:"prefix"`    // key prefix inside the bucket
	PublicURL       string `yaml:"publicurl"` // base URL for returned links, defaults to the bucket URL
	UsePathStyle    bool   `yaml:"usepathstyle"`
	AccessKeyID     string `yaml:"accesskeyid"`
	SecretAccessKey string `yaml:"secretaccesskey"`
}

// LocalImageSettings stores uploads on disk and serves them from the web server.
type LocalImageSettings struct {
	Path      string `yaml:"path"`
	URLPrefix string `yaml:"urlprefix"`
}

// ImageSettings selects the upload backend. An empty provider disables uploads.
type ImageSettings struct {
	Provider      string             `yaml:"provider"`      // imgbb, s3, local or empty
	MaxUploadSize int64              `yaml:"maxuploadsize"` // bytes
	ImgBB         ImgBBSettings      `yaml:"imgbb"`
	S3            S3Settings         `yaml:"s3"`
	Local         LocalImageSettings `yaml:"local"`
}

// CacheSettings tunes in-process caches.
type CacheSettings struct {
	AssociateTTL time.Duration `yaml:"associatettl"` // lifetime of the sibling snapshot used for associate merging
	WorkspaceTTL time.Duration `yaml:"workspacettl"` // idle lifetime of an admin workspace
}

// SentrySettings enables error telemetry.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// MetricsSettings exposes Prometheus metrics on /metrics.
type MetricsSettings struct {
	Enabled bool `yaml:"enabled"`
}

// Settings contains all configuration options for the service.
type Settings struct {
	Main      MainSettings         `yaml:"main"`
	WebServer WebServerSettings    `yaml:"webserver"`
	Security  SecuritySettings     `yaml:"security"`
	Database  DatabaseSettings     `yaml:"database"`
	Images    ImageSettings        `yaml:"images"`
	Cache     CacheSettings        `yaml:"cache"`
	Sentry    SentrySettings       `yaml:"sentry"`
	Metrics   MetricsSettings      `yaml:"metrics"`
	Logging   logger.LoggingConfig `yaml:"logging"`
}

// GoogleAuthConfigured reports whether federated sign-in can be offered.
// Missing credentials disable the sign-in button instead of failing startup.
func (s *Settings) GoogleAuthConfigured() bool {
	g := s.Security.GoogleAuth
	return g.Enabled && g.ClientID != "" && g.ClientSecret != ""
}

// ListenAddress returns host:port for the HTTP server.
func (s *Settings) ListenAddress() string {
	return s.WebServer.Listen + ":" + s.WebServer.Port
}

// CallbackURL returns the OAuth redirect for provider.
func (s *Settings) CallbackURL(provider string) string {
	if s.Security.GoogleAuth.RedirectURI != "" && provider == "google" {
		return s.Security.GoogleAuth.RedirectURI
	}
	return strings.TrimRight(s.WebServer.BaseURL, "/") + "/auth/" + provider + "/callback"
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if settings.Security.SessionSecret == "" {
		settings.Security.SessionSecret = GenerateRandomSecret()
		GetLogger().Warn("no session secret configured, generated an ephemeral one; sessions end on restart")
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, binds the environment and reads the config file.
// An explicit file can be chosen through the "config" key (flag or BPI_CONFIG).
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if explicit := viper.GetString("config"); explicit != "" {
		viper.SetConfigFile(explicit)
		if _, err := os.Stat(explicit); errors.Is(err, fs.ErrNotExist) {
			return createDefaultConfig(explicit)
		}
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", explicit, err)
		}
		return nil
	}

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(filepath.Join(configPaths[0], "config.yaml"))
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to configPath and reads it.
func createDefaultConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	// persist a generated secret so sessions survive restarts
	content := string(data)
	if viper.GetString("security.sessionsecret") == "" {
		content = strings.Replace(content, `sessionsecret: ""`, fmt.Sprintf("sessionsecret: %q", GenerateRandomSecret()), 1)
	}

	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the settings loaded by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path viper read the configuration from.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// SaveYAMLConfig writes settings to configPath. The file is replaced atomically;
// comments and ordering of the previous file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		// cross-device rename, fall back to copy
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}

// GenerateRandomSecret returns a 43 character URL-safe secret with 256 bits of entropy.
func GenerateRandomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		GetLogger().Error("failed to generate random secret", logger.Error(err))
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
