package db

import (
	"context"
	"database/sql"
	"fmt"
	"go-trip-api/config"
	"go-trip-api/logger"
	"net/url"
	"time"

	_ "github.com/lib/pq"
)

// DSN builds the lib/pq keyword connection string. The second value omits the
// password and is safe to log.
func DSN(cfg *config.Config) (dsn, safe string) {
	d := cfg.Database
	safe = fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Name, d.SSLMode)
	dsn = safe
	if d.Password != "" {
		dsn += fmt.Sprintf(" password='%s'", d.Password)
	}
	return dsn, safe
}

// URL builds the postgres:// form used by the migrator.
func URL(cfg *config.Config) string {
	d := cfg.Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	if d.Password == "" {
		u.User = url.User(d.User)
	}
	return u.String()
}

func Connect(cfg *config.Config) (*sql.DB, error) {
	connStr, safeConnStr := DSN(cfg)
	logger.Log.WithField("connection", safeConnStr).Info("Attempting to connect to the database")

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to open database connection")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		logger.Log.WithError(err).Error("Failed to ping database")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Info("Database connection established successfully")
	return db, nil
}
