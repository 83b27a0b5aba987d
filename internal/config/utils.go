package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort     = 8080
	defaultLogLevel = "info"
	defaultSQLite   = "./ndar.db"
)

// Load builds the configuration from the YAML file at path (skipped when path is empty),
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:     defaultPort,
		LogLevel: defaultLogLevel,
	}
	cfg.SQLite.Path = defaultSQLite

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.PackageRoot = getEnv("NDAR_PACKAGE_ROOT", cfg.PackageRoot, parseString)
	cfg.TempDir = getEnv("NDAR_TEMP_DIR", cfg.TempDir, parseString)
	cfg.LogLevel = getEnv("NDAR_LOG_LEVEL", cfg.LogLevel, parseString)
	cfg.Port = getEnv("NDAR_PORT", cfg.Port, parseInt)

	cfg.SQLite.Path = getEnv("SQLITE_DB_PATH", cfg.SQLite.Path, parseString)

	cfg.MySQL.Host = getEnv("MYSQL_HOST", cfg.MySQL.Host, parseString)
	cfg.MySQL.User = getEnv("MYSQL_USER", cfg.MySQL.User, parseString)
	cfg.MySQL.Password = getEnv("MYSQL_PASSWORD", cfg.MySQL.Password, parseString)
	cfg.MySQL.Database = getEnv("MYSQL_DATABASE", cfg.MySQL.Database, parseString)

	cfg.S3.Endpoint = getEnv("S3_ENDPOINT", cfg.S3.Endpoint, parseString)
	cfg.S3.Region = getEnv("S3_REGION", cfg.S3.Region, parseString)
	cfg.S3.UseSSL = getEnv("S3_USE_SSL", cfg.S3.UseSSL, strconv.ParseBool)
	cfg.S3.AccessKey = getEnv("S3_ACCESS_KEY", cfg.S3.AccessKey, parseString)
	cfg.S3.SecretKey = getEnv("S3_SECRET_KEY", cfg.S3.SecretKey, parseString)

	return cfg, nil
}

func getEnv[T any](key string, defaultValue T, parser func(string) (T, error)) T {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	parsed, err := parser(val)
	if err != nil {
		log.Warn().Str("key", key).Str("value", val).Interface("default", defaultValue).Msg("Invalid environment value, using default")
		return defaultValue
	}

	return parsed
}

func parseString(val string) (string, error) {
	return val, nil
}

func parseInt(val string) (int64, error) {
	return strconv.ParseInt(val, 10, 64)
}
