package mysql

import (
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/dfryer1193/ndar/shared/db"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

const (
	driverName  = "mysql"
	defaultPort = "3306"
)

type MySQLConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Enabled reports whether enough settings are present to connect
func (c *MySQLConfig) Enabled() bool {
	return c.Host != "" && c.Database != ""
}

// DSN builds the driver connection string. A host without a port gets 3306.
func (c *MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Host
	if _, _, err := net.SplitHostPort(c.Host); err != nil {
		cfg.Addr = c.Host + ":" + defaultPort
	}
	cfg.DBName = c.Database
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

var _ db.Database = (*MySQLDB)(nil)

// MySQLDB implements the db.Database interface for an existing MySQL package database.
// The image03 table is owned by the database; no migrations are run.
type MySQLDB struct {
	cfg *MySQLConfig
	db  *sql.DB
}

func NewMySQLDB(cfg *MySQLConfig) *MySQLDB {
	return &MySQLDB{
		cfg: cfg,
	}
}

// Connect opens and pings the MySQL database
func (m *MySQLDB) Connect() error {
	if m.db != nil {
		return fmt.Errorf("database already connected")
	}

	if err := db.RequireDriver(driverName); err != nil {
		return err
	}

	conn, err := sql.Open(driverName, m.cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database %s on %s: %w", m.cfg.Database, m.cfg.Host, err)
	}

	m.db = conn
	log.Debug().Str("host", m.cfg.Host).Str("database", m.cfg.Database).Msg("Connected to MySQL package index")
	return nil
}

// Close closes the database connection
func (m *MySQLDB) Close() error {
	if m.db == nil {
		return nil
	}

	err := m.db.Close()
	m.db = nil
	return err
}

// DB returns the underlying *sql.DB instance
func (m *MySQLDB) DB() *sql.DB {
	return m.db
}
