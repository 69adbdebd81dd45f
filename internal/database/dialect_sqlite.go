package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// DSN carries the per-connection options. PRAGMAs issued through db.Exec
// only reach one pooled connection.
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	return appendParams(config.Path, [][2]string{
		{"_foreign_keys", "on"},
		{"_journal_mode", "WAL"},
		{"_busy_timeout", "5000"},
		{"_txlock", "immediate"},
	})
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *SQLiteDialect) BoolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d *SQLiteDialect) IncrementMistakeQuery() string {
	return `
		INSERT INTO question_mistakes (question_id, learner_id, mistakes_count)
		SELECT id, ?, 1 FROM questions WHERE id = ?
		ON CONFLICT (question_id, learner_id)
		DO UPDATE SET mistakes_count = question_mistakes.mistakes_count + 1
	`
}
