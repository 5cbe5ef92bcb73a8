package schema

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func isPostgresUri(uri string) bool {
	return strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://")
}

// The postgres driver used by gorm does not accept all uri forms, so the uri is
// converted into a key=value dsn.
func postgresDsn(uri string) (string, error) {
	parts, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("error parsing db uri: %w", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")

	dsn := fmt.Sprintf("host=%v user=%v password=%v dbname=%v", parts.Hostname(), parts.User.Username(), pwd, dbname)
	if port := parts.Port(); port != "" {
		dsn += " port=" + port
	}
	if sslmode := parts.Query().Get("sslmode"); sslmode != "" {
		dsn += " sslmode=" + sslmode
	}
	return dsn, nil
}

// OpenDb opens a postgres database when uri is a postgres uri, and treats it as a
// sqlite path otherwise. Unique violations are translated into gorm.ErrDuplicatedKey.
func OpenDb(uri string, pool PoolOptions) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if isPostgresUri(uri) {
		dsn, err := postgresDsn(uri)
		if err != nil {
			return nil, err
		}
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(uri)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		slog.Error("error opening database connection", "error", err)
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	sqlDb, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error accessing database pool: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDb.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDb.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDb.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	return db, nil
}
