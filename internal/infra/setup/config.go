package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported DB_DRIVER values.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// DBOptions describes the document store connection.
type DBOptions struct {
	Driver   string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	Debug    bool
}

// DSN builds the driver-specific connection string.
func (o DBOptions) DSN() (string, error) {
	switch o.Driver {
	case DriverMySQL, "":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			o.User, o.Password, o.Host, o.Port, o.Name), nil
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			o.Host, o.Port, o.User, o.Password, o.Name), nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", o.Driver)
	}
}

// InitDB opens the document store and sizes its connection pool.
func InitDB(opts DBOptions) (*gorm.DB, error) {
	dsn, err := opts.DSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	if opts.Driver == DriverPostgres {
		dialector = postgres.Open(dsn)
	} else {
		dialector = mysql.Open(dsn)
	}

	logLevel := gormlogger.Warn
	if opts.Debug {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logrus.WithFields(logrus.Fields{"driver": opts.Driver, "host": opts.Host, "db": opts.Name}).Info("Database connected")
	return db, nil
}

// RedisOptions describes the update log and bus store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// PoolSize must cover one pinned connection and one pub/sub connection per session.
	PoolSize int
}

// InitRedis connects and pings Redis.
func InitRedis(opts RedisOptions) (*redis.Client, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 200
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	logrus.WithField("addr", opts.Addr).Info("Redis connected")
	return client, nil
}
