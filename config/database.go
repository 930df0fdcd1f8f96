package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

const databaseMaxAttempts = 5

func GetDB() *gorm.DB {
	return db
}

// MysqlDSN builds the go-sql-driver DSN. A DB_HOST of "/cloudsql/<CONNECTION_NAME>"
// connects through the Cloud SQL unix socket.
func MysqlDSN(c DatabaseConfig) string {
	cfg := mysqlDriver.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if strings.HasPrefix(c.Host, "/cloudsql/") {
		cfg.Net = "unix"
		cfg.Addr = c.Host
	} else {
		cfg.Net = "tcp"
		port := c.Port
		if port == "" {
			port = "3306"
		}
		cfg.Addr = fmt.Sprintf("%s:%s", c.Host, port)
	}
	return cfg.FormatDSN()
}

func PostgresDSN(c DatabaseConfig) string {
	port := c.Port
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		c.Host, port, c.User, c.Password, c.Name)
}

func dialector(c DatabaseConfig) (gorm.Dialector, error) {
	switch c.Driver {
	case "", "mysql":
		return mysql.Open(MysqlDSN(c)), nil
	case "postgres":
		return postgres.Open(PostgresDSN(c)), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
}

// ConnectDatabaseWithRetry connects and sets the global DB.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry(ctx context.Context, c DatabaseConfig) (*gorm.DB, error) {
	if !c.Enabled() {
		return nil, errors.New("DB_HOST not set")
	}
	d, err := dialector(c)
	if err != nil {
		return nil, err
	}
	logg := GetLogger()

	var lastErr error
	for attempt := 1; attempt <= databaseMaxAttempts; attempt++ {
		conn, err := gorm.Open(d, initConfig())
		if err == nil {
			tunePool(conn)
			if pluginErr := conn.Use(otelgorm.NewPlugin()); pluginErr != nil {
				logg.Warnf("db connected but failed to install otelgorm plugin: %v", pluginErr)
			}
			db = conn
			logg.WithField("driver", c.Driver).WithField("attempt", attempt).Info("connected to database")
			return conn, nil
		}
		lastErr = err

		sleep := backoff(attempt)
		logg.WithField("attempt", attempt).Warnf("failed to connect database: %v; retrying in %s", err, sleep)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("connect database: %w", lastErr)
}

// Env overrides (optional):
// - DB_MAX_OPEN_CONNS (default 10)
// - DB_MAX_IDLE_CONNS (default 5)
// - DB_CONN_MAX_LIFETIME_SECONDS (default 300)
func tunePool(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil || sqlDB == nil {
		return
	}
	maxOpen := utils.IntFromEnv("DB_MAX_OPEN_CONNS", 10)
	maxIdle := utils.IntFromEnv("DB_MAX_IDLE_CONNS", 5)
	connMaxLife := time.Duration(utils.IntFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second

	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if connMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(connMaxLife)
	}
}

func CloseDatabase() {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: schema.NamingStrategy{},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func initLog() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
}
