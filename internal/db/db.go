package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Config holds database configuration
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New creates a new database connection
func New(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	return open(dsn, cfg)
}

// NewFromURL creates a new database connection from a connection URL
func NewFromURL(url string) (*DB, error) {
	return open(url, Config{})
}

func open(dsn string, cfg Config) (*DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConnections > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{sqlDB}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

// UsageLog represents one recorded AI request
type UsageLog struct {
	ID             int64
	Provider       string
	Model          string
	Tokens         int
	ProcessingTime int64 // milliseconds
	FallbackUsed   bool
	Success        bool
	CreatedAt      time.Time
}

// SystemMetric represents a recorded system measurement
type SystemMetric struct {
	ID          int64
	MetricName  string
	MetricValue float64
	Metadata    []byte // JSON
	RecordedAt  time.Time
}

// ProviderDayStat is one row of the per-provider per-day usage aggregate
type ProviderDayStat struct {
	Provider          string    `json:"provider"`
	RequestCount      int64     `json:"requestCount"`
	AvgProcessingTime float64   `json:"avgProcessingTime"`
	TotalTokens       int64     `json:"totalTokens"`
	Date              time.Time `json:"date"`
}

// DashboardStats is the aggregate summary served to the dashboard
type DashboardStats struct {
	TotalRequests     int64   `json:"totalRequests"`
	TotalTokens       int64   `json:"totalTokens"`
	AvgProcessingTime float64 `json:"avgProcessingTime"`
	FallbackRate      float64 `json:"fallbackRate"`
	SuccessRate       float64 `json:"successRate"`
}
