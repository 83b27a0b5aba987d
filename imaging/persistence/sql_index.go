package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/dfryer1193/ndar/shared/db"
	"github.com/rs/zerolog/log"
)

var (
	_ domain.PackageIndex = (*SQLPackageIndex)(nil)
	_ domain.RecordStore  = (*SQLPackageIndex)(nil)
)

const imageTable = "image03"

// SQLPackageIndex reads and writes image records in the image03 table of a SQL database (SQLite or MySQL)
type SQLPackageIndex struct {
	db *sql.DB
}

// NewSQLPackageIndex creates a new SQLPackageIndex from a standard sql.DB
func NewSQLPackageIndex(sqlDB *sql.DB) *SQLPackageIndex {
	return &SQLPackageIndex{
		db: sqlDB,
	}
}

const selectRecordsQuery = `SELECT * FROM ` + imageTable

// Records returns every row of image03 keyed by column name. NULL columns become empty strings.
func (r *SQLPackageIndex) Records(ctx context.Context) ([]domain.Record, error) {
	executor := db.GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, selectRecordsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query image records: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read image record columns: %w", err)
	}

	records := []domain.Record{}
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan image record: %w", err)
		}

		rec := make(domain.Record, len(cols))
		for i, col := range cols {
			rec[col] = values[i].String
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image records: %w", err)
	}

	return records, nil
}

// InsertRecords writes records into image03 within a single transaction.
// Only keys matching an existing column are stored; the rest are skipped.
func (r *SQLPackageIndex) InsertRecords(ctx context.Context, records []domain.Record) (int, error) {
	inserted := 0

	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		cols, err := r.tableColumns(txCtx)
		if err != nil {
			return err
		}

		known := make(map[string]bool, len(cols))
		for _, c := range cols {
			known[c] = true
		}

		skipped := make(map[string]bool)
		executor := db.GetExecutor(txCtx, r.db)

		for _, rec := range records {
			var names []string
			var args []any
			for _, c := range cols {
				if v, ok := rec[c]; ok {
					names = append(names, c)
					args = append(args, v)
				}
			}
			for k := range rec {
				if !known[k] {
					skipped[k] = true
				}
			}

			if len(names) == 0 {
				continue
			}

			query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				imageTable,
				strings.Join(names, ", "),
				strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "),
			)
			if _, err := executor.ExecContext(txCtx, query, args...); err != nil {
				return fmt.Errorf("failed to insert image record: %w", err)
			}
			inserted++
		}

		for k := range skipped {
			log.Warn().Str("column", k).Msg("Skipping column not present in image table")
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

func (r *SQLPackageIndex) tableColumns(ctx context.Context) ([]string, error) {
	executor := db.GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, selectRecordsQuery+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("failed to inspect image table: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read image table columns: %w", err)
	}
	return cols, nil
}
