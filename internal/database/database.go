package database

import (
	"fmt"
	"strings"

	"bridgeconnector/internal/config"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB

	driver string
	dsn    string
}

// New opens the store database. A sqlite:// DATABASE_URL selects SQLite for
// development; otherwise the MySQL DSN is assembled from the host
// configuration (supporting host, host:port and unix socket forms).
func New(cfg *config.Config) (*Database, error) {
	var db *gorm.DB
	var err error
	var driver, dsn string

	if strings.HasPrefix(cfg.DatabaseURL, "sqlite://") {
		// SQLite for development and tests
		driver = "sqlite3"
		dsn = strings.TrimPrefix(cfg.DatabaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		driver = "mysql"
		dsn = MySQLDSN(cfg)
		db, err = gorm.Open(gormmysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{DB: db, driver: driver, dsn: dsn}, nil
}

// MySQLDSN builds the driver DSN from the host configuration.
func MySQLDSN(cfg *config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.DBName = cfg.DBName
	mc.Net, mc.Addr = SplitHostPort(cfg.DBHost)
	return mc.FormatDSN()
}

// SplitHostPort interprets the host setting the way the store's own
// configuration does: empty means localhost, a path containing ".sock" or
// starting with "/" is a unix socket, host:port splits, a bare host gets the
// default port.
func SplitHostPort(source string) (network, addr string) {
	source = strings.TrimSpace(source)

	if source == "" {
		return "tcp", "localhost:3306"
	}

	if strings.Contains(source, ".sock") {
		sock := strings.TrimPrefix(source, "localhost:")
		sock = strings.TrimPrefix(sock, "127.0.0.1:")
		return "unix", sock
	}

	if strings.HasPrefix(source, "/") {
		return "unix", source
	}

	if host, port, ok := strings.Cut(source, ":"); ok {
		return "tcp", host + ":" + port
	}

	return "tcp", source + ":3306"
}

// NewLink returns a request-scoped Link with its own connection, independent
// of the shared gorm pool.
func (d *Database) NewLink() *Link {
	return NewLink(DefaultOpener(d.driver, d.dsn))
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
