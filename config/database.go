package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var db *gorm.DB

func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the global handle. Ops binaries and tests that open their
// own connection install it here.
func SetDB(d *gorm.DB) {
	db = d
}

func init() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()
}

// mysqlDSN builds the go-sql-driver DSN from DB_* variables. A DB_HOST under
// /cloudsql/ is treated as a Cloud SQL unix socket.
func mysqlDSN() string {
	host := os.Getenv("DB_HOST")
	network, address := "tcp", fmt.Sprintf("%s:%s", host, os.Getenv("DB_PORT"))
	if strings.HasPrefix(host, "/cloudsql/") {
		network, address = "unix", host
	}
	return fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true&loc=UTC",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		network,
		address,
		os.Getenv("DB_NAME"),
	)
}

// retryBackoff is the sleep before reconnect attempt n+1: 2^n seconds, at most 30s.
func retryBackoff(attempt int) time.Duration {
	sleep := time.Second * time.Duration(1<<min(attempt, 5))
	if sleep > 30*time.Second {
		return 30 * time.Second
	}
	return sleep
}

// ConnectDatabaseWithRetry blocks until MySQL answers, then installs the
// handle. main calls it after the HTTP listener is up.
func ConnectDatabaseWithRetry() {
	dsn := mysqlDSN()
	for attempt := 1; ; attempt++ {
		conn, err := OpenMySQL(dsn)
		if err == nil {
			db = conn
			log.Printf("connected to database (attempt=%d)", attempt)
			return
		}
		sleep := retryBackoff(attempt)
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// OpenMySQL opens one connection pool with the service's gorm settings,
// pool limits and tracing plugin.
func OpenMySQL(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(mysql.Open(dsn), GormConfig())
	if err != nil {
		return nil, err
	}
	if sqlDB, err := conn.DB(); err == nil {
		sqlDB.SetMaxOpenConns(intFromEnv("DB_MAX_OPEN_CONNS", 50))
		sqlDB.SetMaxIdleConns(intFromEnv("DB_MAX_IDLE_CONNS", 25))
		sqlDB.SetConnMaxLifetime(time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second)
		sqlDB.SetConnMaxIdleTime(time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second)
	}
	if err := conn.Use(otelgorm.NewPlugin()); err != nil {
		log.Printf("otelgorm plugin not installed: %v", err)
	}
	return conn, nil
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GormConfig is shared by the MySQL handle and the SQLite test handle.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				Colorful:                  false,
				LogLevel:                  logger.Error,
				SlowThreshold:             time.Second,
				IgnoreRecordNotFoundError: true,
			},
		),
		NamingStrategy: schema.NamingStrategy{},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}
