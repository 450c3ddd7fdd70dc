package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	// PostgreSQL uses $1, $2, etc. instead of ?
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) SupportsLastInsertId() bool {
	// PostgreSQL doesn't support LastInsertId(), needs RETURNING clause
	return false
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	// Configure connection pool for PostgreSQL
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// PostgreSQL has foreign keys enabled by default, no pragma needed
	return nil
}

func (d *PostgresDialect) MigrationsSubdir() string {
	return "postgres"
}

func (d *PostgresDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT UNIQUE NOT NULL,
			executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *PostgresDialect) UpsertFeatureFlagQuery() string {
	return "INSERT INTO feature_flags (family_id, flag_key, enabled) VALUES (?, ?, ?) " +
		"ON CONFLICT (family_id, flag_key) DO UPDATE SET enabled = excluded.enabled, updated_at = CURRENT_TIMESTAMP"
}

func (d *PostgresDialect) InsertConversationQuery() string {
	return "INSERT INTO conversations (pair_key, adult_user_id, child_id, peer_child_id) VALUES (?, ?, ?, ?) " +
		"ON CONFLICT (pair_key) DO NOTHING"
}

func (d *PostgresDialect) InsertConnectionQuery() string {
	return "INSERT INTO connections (pair_key, requester_child_id, requester_family_id, target_child_id, target_family_id, status) VALUES (?, ?, ?, ?, ?, ?) " +
		"ON CONFLICT (pair_key) DO NOTHING"
}
