package db

import (
	"database/sql"
	"fmt"
	"slices"

	"github.com/dfryer1193/ndar/imaging/domain"
)

// Database is a relational backend holding a package's image index
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}

// RequireDriver fails with domain.ErrCapabilityUnavailable unless a database/sql driver named name is registered
func RequireDriver(name string) error {
	if !slices.Contains(sql.Drivers(), name) {
		return fmt.Errorf("%w: database driver %q is not registered", domain.ErrCapabilityUnavailable, name)
	}
	return nil
}
