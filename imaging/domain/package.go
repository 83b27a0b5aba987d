package domain

import "context"

// Record is one row of a package's image index, keyed by column name.
// When a header repeats, the last column with that name wins.
type Record map[string]string

// ImageFileColumn holds the image reference in an image03 row
const ImageFileColumn = "image_file"

// PackageIndex supplies the ordered image records of a package
type PackageIndex interface {
	Records(ctx context.Context) ([]Record, error)
}

// RecordStore accepts image records for persistent storage
type RecordStore interface {
	// InsertRecords stores records and returns how many were written
	InsertRecords(ctx context.Context, records []Record) (int, error)
}
