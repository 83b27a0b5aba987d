package config

import (
	"github.com/dfryer1193/ndar/shared/db/mysql"
	"github.com/dfryer1193/ndar/shared/db/sqlite"
	"github.com/dfryer1193/ndar/shared/objectstore/s3"
)

// Config holds the settings shared by the CLI and the HTTP server
type Config struct {
	// PackageRoot is a package directory containing image03.txt and image03/
	PackageRoot string `yaml:"package_root"`
	// TempDir is where staging directories are created; empty means the system default
	TempDir  string             `yaml:"temp_dir"`
	LogLevel string             `yaml:"log_level"`
	Port     int64              `yaml:"port"`
	SQLite   sqlite.SQLiteConfig `yaml:"sqlite"`
	MySQL    mysql.MySQLConfig   `yaml:"mysql"`
	S3       S3Settings          `yaml:"s3"`
}

// S3Settings configures the object store and the credentials used for remote images
type S3Settings struct {
	s3.S3Config `yaml:",inline"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
}

// RemoteEnabled reports whether remote images can be fetched
func (c *Config) RemoteEnabled() bool {
	return c.S3.AccessKey != "" && c.S3.SecretKey != ""
}
