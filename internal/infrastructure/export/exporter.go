package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
)

// Header is the column layout of a failure report
var Header = []string{"timestamp", "error_kind", "user_id", "username", "first_name", "last_name", "account", "error"}

// Uploader stores a finished report remotely and returns its location
type Uploader interface {
	Upload(ctx context.Context, objectKey, contentType string, reader io.Reader, size int64) (string, error)
}

// CSVExporter writes failure reports as CSV files and optionally uploads them
type CSVExporter struct {
	dir      string
	uploader Uploader
	logger   zerolog.Logger
}

// NewCSVExporter creates an exporter writing into dir. uploader may be nil.
func NewCSVExporter(dir string, uploader Uploader, logger zerolog.Logger) *CSVExporter {
	return &CSVExporter{
		dir:      dir,
		uploader: uploader,
		logger:   logger.With().Str("component", "failure_exporter").Logger(),
	}
}

// Export writes failures_<runID>.csv and returns the upload location,
// or the local path when no uploader is configured or the upload failed
func (e *CSVExporter) Export(ctx context.Context, runID string, failures []entities.FailureRecord) (string, error) {
	if len(failures) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	fileName := fmt.Sprintf("failures_%s.csv", runID)
	path := filepath.Join(e.dir, fileName)

	if err := writeCSV(path, failures); err != nil {
		return "", err
	}

	e.logger.Info().
		Str("run_id", runID).
		Str("path", path).
		Int("rows", len(failures)).
		Msg("Failure report written")

	if e.uploader == nil {
		return path, nil
	}

	location, err := e.upload(ctx, path, "failures/"+fileName)
	if err != nil {
		e.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to upload failure report, keeping local copy")
		return path, nil
	}

	return location, nil
}

func (e *CSVExporter) upload(ctx context.Context, path, objectKey string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat report: %w", err)
	}

	return e.uploader.Upload(ctx, objectKey, "text/csv", f, info.Size())
}

func writeCSV(path string, failures []entities.FailureRecord) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close report file: %w", closeErr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, rec := range failures {
		row := []string{
			rec.Timestamp.UTC().Format(time.RFC3339),
			rec.Kind,
			strconv.FormatInt(rec.UserID, 10),
			rec.Username,
			rec.FirstName,
			rec.LastName,
			rec.Account,
			rec.Error,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// NoopExporter discards failure reports; used when export is disabled
type NoopExporter struct{}

func (NoopExporter) Export(context.Context, string, []entities.FailureRecord) (string, error) {
	return "", nil
}

var (
	_ deps.FailureExporter = (*CSVExporter)(nil)
	_ deps.FailureExporter = NoopExporter{}
)
