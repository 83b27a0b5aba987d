package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/dfryer1193/ndar/shared/db"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

var _ db.Database = (*SQLiteDB)(nil)

// SQLiteDB implements the db.Database interface for SQLite.
// Connecting runs migrations, so a fresh file gets an empty image03 table.
type SQLiteDB struct {
	dbPath string
	db     *sql.DB
}

// NewSQLiteDB creates a new SQLite database instance for cfg.Path
func NewSQLiteDB(cfg *SQLiteConfig) *SQLiteDB {
	return &SQLiteDB{
		dbPath: cfg.Path,
	}
}

// Connect opens a connection to the SQLite database
func (s *SQLiteDB) Connect() error {
	if s.db != nil {
		return fmt.Errorf("database already connected")
	}

	if err := db.RequireDriver(driverName); err != nil {
		return err
	}

	conn, err := sql.Open(driverName, s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Imports write in one large transaction while readers list records
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	s.db = conn

	// Run migrations
	if err := runMigrations(conn); err != nil {
		conn.Close()
		s.db = nil
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Debug().Str("path", s.dbPath).Msg("Connected to SQLite package index")
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}

// DB returns the underlying *sql.DB instance
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}
