package application

import (
	"context"
	"fmt"

	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/rs/zerolog/log"
)

// ImportService copies a package's image records from one index into a record store
type ImportService struct {
	source domain.PackageIndex
	dest   domain.RecordStore
}

func NewImportService(source domain.PackageIndex, dest domain.RecordStore) *ImportService {
	return &ImportService{
		source: source,
		dest:   dest,
	}
}

// Import reads every record from the source and writes them to the destination
func (s *ImportService) Import(ctx context.Context) (int, error) {
	records, err := s.source.Records(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read source records: %w", err)
	}

	n, err := s.dest.InsertRecords(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("failed to store records: %w", err)
	}

	log.Info().Int("read", len(records)).Int("written", n).Msg("Imported package records")
	return n, nil
}
