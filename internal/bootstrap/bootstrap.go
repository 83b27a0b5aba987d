// Package bootstrap turns a loaded Config into the logger and package facade used by the binaries
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dfryer1193/ndar/imaging/application"
	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/dfryer1193/ndar/imaging/persistence"
	"github.com/dfryer1193/ndar/internal/config"
	"github.com/dfryer1193/ndar/shared/db"
	"github.com/dfryer1193/ndar/shared/db/mysql"
	"github.com/dfryer1193/ndar/shared/db/sqlite"
	"github.com/dfryer1193/ndar/shared/objectstore/s3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging points the global logger at stderr and applies level.
// An unknown level falls back to info.
func SetupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// OpenPackage builds the package facade described by cfg.
// A configured PackageRoot selects a local package read from image03.txt.
// Otherwise S3 credentials select a remote package whose index lives in MySQL when
// configured and in SQLite when not. The returned close func releases the index database.
func OpenPackage(cfg *config.Config) (*application.Package, func() error, error) {
	var opts []application.Option
	if cfg.TempDir != "" {
		opts = append(opts, application.WithTempDir(cfg.TempDir))
	}

	if cfg.PackageRoot != "" {
		log.Debug().Str("root", cfg.PackageRoot).Msg("Using local package")
		index := persistence.NewFilePackageIndex(cfg.PackageRoot)
		return application.NewLocalPackage(index, cfg.PackageRoot, opts...), noopClose, nil
	}

	if !cfg.RemoteEnabled() {
		return nil, nil, fmt.Errorf("%w: set a package root or S3 credentials", domain.ErrCapabilityUnavailable)
	}

	database, err := OpenIndexDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	creds := domain.Credentials{AccessKey: cfg.S3.AccessKey, SecretKey: cfg.S3.SecretKey}
	pkg, err := application.NewRemotePackage(
		persistence.NewSQLPackageIndex(database.DB()),
		s3.NewDialer(cfg.S3.S3Config),
		creds,
		opts...,
	)
	if err != nil {
		return nil, nil, errors.Join(err, database.Close())
	}

	return pkg, database.Close, nil
}

// OpenIndexDatabase connects to MySQL when it is configured and to SQLite otherwise
func OpenIndexDatabase(cfg *config.Config) (db.Database, error) {
	var database db.Database
	if cfg.MySQL.Enabled() {
		database = mysql.NewMySQLDB(&cfg.MySQL)
	} else {
		database = sqlite.NewSQLiteDB(&cfg.SQLite)
	}

	if err := database.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to package index: %w", err)
	}
	return database, nil
}

func noopClose() error {
	return nil
}
