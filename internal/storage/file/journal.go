// internal/storage/file/journal.go
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/logger"
	"github.com/rovshanmuradov/lp-sniper/internal/storage"
	"go.uber.org/zap"
)

const flushInterval = 5 * time.Second

// Journal appends one JSON line per order attempt.
type Journal struct {
	w *logger.SafeFileWriter
}

var _ storage.TradeJournal = (*Journal)(nil)

func NewJournal(path string, log *zap.Logger) (*Journal, error) {
	w, err := logger.NewSafeFileWriter(path, flushInterval, log.Named("trade_journal"))
	if err != nil {
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	return &Journal{w: w}, nil
}

func (j *Journal) Append(_ context.Context, rec domain.TradeRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode trade record: %w", err)
	}
	if err := j.w.WriteLine(string(line)); err != nil {
		return err
	}
	// Аудит не должен теряться при падении процесса
	return j.w.Flush()
}

func (j *Journal) Close() error {
	return j.w.Close()
}

var csvHeader = []string{"timestamp", "id", "side", "token", "amount", "price", "signature", "success", "error_kind"}

// CSVJournal mirrors the journal as a spreadsheet-friendly export.
type CSVJournal struct {
	w *logger.SafeCSVWriter
}

var _ storage.TradeJournal = (*CSVJournal)(nil)

func NewCSVJournal(path string, log *zap.Logger) (*CSVJournal, error) {
	w, err := logger.NewSafeCSVWriter(path, csvHeader, flushInterval, log.Named("trade_csv"))
	if err != nil {
		return nil, fmt.Errorf("open trade csv: %w", err)
	}
	return &CSVJournal{w: w}, nil
}

func (j *CSVJournal) Append(_ context.Context, rec domain.TradeRecord) error {
	return j.w.WriteRecord([]string{
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.ID,
		string(rec.Side),
		rec.Token,
		rec.Amount.String(),
		rec.Price.String(),
		rec.Signature,
		strconv.FormatBool(rec.Success),
		string(rec.ErrorKind),
	})
}

func (j *CSVJournal) Close() error {
	return j.w.Close()
}
