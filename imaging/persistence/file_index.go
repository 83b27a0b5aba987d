package persistence

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dfryer1193/ndar/imaging/domain"
)

var _ domain.PackageIndex = (*FilePackageIndex)(nil)

// indexFile is the tab-delimited image index at the root of a package
const indexFile = "image03.txt"

// FilePackageIndex reads image records from a package directory's image03.txt.
// The first row holds column names, the second a description line that is discarded.
type FilePackageIndex struct {
	root string
}

func NewFilePackageIndex(root string) *FilePackageIndex {
	return &FilePackageIndex{
		root: root,
	}
}

// Path returns the location of the index file
func (r *FilePackageIndex) Path() string {
	return filepath.Join(r.root, indexFile)
}

// Records parses the index file. Rows shorter than the header only carry the columns they have;
// extra trailing fields are ignored.
func (r *FilePackageIndex) Records(ctx context.Context) ([]domain.Record, error) {
	f, err := os.Open(r.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: package index %s", domain.ErrNotFound, r.Path())
		}
		return nil, fmt.Errorf("failed to open package index: %w", err)
	}
	defer f.Close()

	return parseIndex(f)
}

func parseIndex(in io.Reader) ([]domain.Record, error) {
	cr := csv.NewReader(in)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("failed to read index description line: %w", err)
	}

	records := []domain.Record{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read index row: %w", err)
		}

		rec := make(domain.Record, len(headers))
		for i, h := range headers {
			if i >= len(row) {
				break
			}
			rec[h] = row[i]
		}
		records = append(records, rec)
	}

	return records, nil
}
