package datastore

import (
	"fmt"
	"net"
	"strconv"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/logger"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	m := settings.Database.MySQL
	switch {
	case m.Host == "":
		return validationError("mysql host is required", "database.mysql.host", "")
	case m.Database == "":
		return validationError("mysql database is required", "database.mysql.database", "")
	case m.Port <= 0 || m.Port > 65535:
		return validationError("mysql port must be between 1 and 65535", "database.mysql.port", m.Port)
	}
	return nil
}

// mysqlDSN builds the DSN with the driver's own formatter.
func mysqlDSN(m conf.MySQLSettings) string {
	cfg := mysqldrv.NewConfig()
	cfg.User = m.Username
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	m := store.Settings.Database.MySQL
	gormLogger := logger.NewGormLoggerAdapter(GetLogger(), slowQueryThreshold)
	db, err := gorm.Open(mysql.Open(mysqlDSN(m)), &gorm.Config{Logger: gormLogger})
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", m.Host),
			logger.Int("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	store.DB = db
	return performAutoMigration(db, "MySQL")
}
