package database

import (
	"strings"
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("RewriteQuery", func(t *testing.T) {
		query := "SELECT * FROM blocks WHERE blocker_child_id = ? AND blocked_user_id = ?"
		if dialect.RewriteQuery(query) != query {
			t.Error("RewriteQuery() should not modify SQLite queries")
		}
	})

	t.Run("InsertConversationQuery", func(t *testing.T) {
		query := dialect.InsertConversationQuery()
		if !strings.Contains(query, "INSERT OR IGNORE") {
			t.Errorf("InsertConversationQuery() should use INSERT OR IGNORE, got %v", query)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("RewriteQuery", func(t *testing.T) {
		query := "INSERT INTO feature_flags (family_id, flag_key, enabled) VALUES (?, ?, ?)"
		result := dialect.RewriteQuery(query)
		expected := "INSERT INTO feature_flags (family_id, flag_key, enabled) VALUES ($1, $2, $3)"
		if result != expected {
			t.Errorf("RewriteQuery() = %v, want %v", result, expected)
		}
	})

	t.Run("UpsertFeatureFlagQuery", func(t *testing.T) {
		query := dialect.UpsertFeatureFlagQuery()
		if !strings.Contains(query, "ON CONFLICT") {
			t.Errorf("UpsertFeatureFlagQuery() should use ON CONFLICT, got %v", query)
		}
	})

	t.Run("InsertConversationQuery", func(t *testing.T) {
		query := dialect.InsertConversationQuery()
		if !strings.Contains(query, "ON CONFLICT (pair_key) DO NOTHING") {
			t.Errorf("InsertConversationQuery() should use ON CONFLICT DO NOTHING, got %v", query)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("UpsertFeatureFlagQuery", func(t *testing.T) {
		query := dialect.UpsertFeatureFlagQuery()
		if !strings.Contains(query, "ON DUPLICATE KEY UPDATE") {
			t.Errorf("UpsertFeatureFlagQuery() should use ON DUPLICATE KEY UPDATE, got %v", query)
		}
	})

	t.Run("InsertConversationQuery", func(t *testing.T) {
		query := dialect.InsertConversationQuery()
		if !strings.Contains(query, "INSERT IGNORE") {
			t.Errorf("InsertConversationQuery() should use INSERT IGNORE, got %v", query)
		}
	})
}

func TestRewritePlaceholdersToNumbered(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "no placeholders",
			query:    "SELECT COUNT(*) FROM families",
			expected: "SELECT COUNT(*) FROM families",
		},
		{
			name:     "single placeholder",
			query:    "SELECT id FROM children WHERE username = ?",
			expected: "SELECT id FROM children WHERE username = $1",
		},
		{
			name:     "multiple placeholders",
			query:    "INSERT INTO child_memberships (child_id, family_id, added_by) VALUES (?, ?, ?)",
			expected: "INSERT INTO child_memberships (child_id, family_id, added_by) VALUES ($1, $2, $3)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := rewritePlaceholdersToNumbered(tt.query)
			if result != tt.expected {
				t.Errorf("rewritePlaceholdersToNumbered() = %v, want %v", result, tt.expected)
			}
		})
	}
}
