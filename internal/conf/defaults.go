// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/peepybureau/bpi/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("main.name", "Bureau of Peepy Investigation")
	viper.SetDefault("main.debug", false)

	viper.SetDefault("webserver.listen", "")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.baseurl", "http://localhost:8080")
	viper.SetDefault("webserver.readtimeout", 30*time.Second)
	viper.SetDefault("webserver.autotls", false)
	viper.SetDefault("webserver.certcache", "")

	viper.SetDefault("security.host", "")
	viper.SetDefault("security.sessionmaxage", 7*24*time.Hour)
	viper.SetDefault("security.securecookies", false)
	viper.SetDefault("security.googleauth.enabled", false)
	viper.SetDefault("security.initialadmins", []string{})
	viper.SetDefault("security.ratelimitpermin", 30)

	viper.SetDefault("database.driver", DriverSQLite)
	viper.SetDefault("database.sqlite.path", "bpi.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)
	viper.SetDefault("database.mysql.username", "bpi")
	viper.SetDefault("database.mysql.database", "bpi")

	viper.SetDefault("images.provider", "")
	viper.SetDefault("images.maxuploadsize", 10<<20)
	viper.SetDefault("images.imgbb.endpoint", "https://api.imgbb.com/1/upload")
	viper.SetDefault("images.imgbb.timeout", 30*time.Second)
	viper.SetDefault("images.s3.region", "us-east-1")
	viper.SetDefault("images.s3.prefix", "mugshots")
	viper.SetDefault("images.local.path", "uploads")
	viper.SetDefault("images.local.urlprefix", "/uploads")

	viper.SetDefault("cache.associatettl", 30*time.Second)
	viper.SetDefault("cache.workspacettl", 2*time.Hour)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("metrics.enabled", true)

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	viper.SetDefault("logging.file_output.max_age", logger.DefaultMaxAge)
	viper.SetDefault("logging.file_output.max_backups", logger.DefaultMaxBackups)
}
