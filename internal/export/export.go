// internal/export/export.go
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	StartTime   time.Time
	EndTime     time.Time
	TokenFilter string      // Filter by token mint
	SideFilter  domain.Side // Filter by side (buy/sell)
	OnlySuccess bool        // Only export successful orders
	OutputDir   string
}

// ReadJournal читает JSONL-журнал сделок. Отсутствующий файл даёт пустой список,
// битые строки пропускаются и возвращаются счётчиком.
func ReadJournal(path string) ([]domain.TradeRecord, int, error) {
	f, err := os.Open(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open trade log: %w", err)
	}
	defer f.Close()

	var (
		trades  []domain.TradeRecord
		skipped int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.TradeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		trades = append(trades, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read trade log: %w", err)
	}
	return trades, skipped, nil
}

// TradeExporter handles trade export functionality
type TradeExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// ExportTrades exports trades based on the provided options
func (te *TradeExporter) ExportTrades(trades []domain.TradeRecord, options ExportOptions) (string, error) {
	filtered := te.filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	outputPath := filepath.Join(options.OutputDir, te.generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("📤 Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (te *TradeExporter) filterTrades(trades []domain.TradeRecord, options ExportOptions) []domain.TradeRecord {
	var filtered []domain.TradeRecord
	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && !trade.Timestamp.Before(options.EndTime) {
			continue
		}
		if options.TokenFilter != "" && trade.Token != options.TokenFilter {
			continue
		}
		if options.SideFilter != "" && trade.Side != options.SideFilter {
			continue
		}
		if options.OnlySuccess && !trade.Success {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

func (te *TradeExporter) generateFilename(options ExportOptions) string {
	timestamp := te.now().Format("20060102_150405")

	prefix := "trades_all"
	if options.SideFilter != "" {
		prefix = fmt.Sprintf("trades_%s", options.SideFilter)
	}
	if token := options.TokenFilter; token != "" {
		if len(token) > 8 {
			token = token[:8]
		}
		prefix += "_" + token
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// CSVHeaders returns the column order used by CSV exports.
func CSVHeaders() []string {
	return []string{"timestamp", "id", "side", "token", "amount", "price", "signature", "success", "error_kind", "error_msg"}
}

func csvRow(t domain.TradeRecord) []string {
	return []string{
		t.Timestamp.Format(time.RFC3339),
		t.ID,
		string(t.Side),
		t.Token,
		t.Amount.String(),
		t.Price.String(),
		t.Signature,
		strconv.FormatBool(t.Success),
		string(t.ErrorKind),
		t.ErrorMsg,
	}
}

func (te *TradeExporter) exportToCSV(trades []domain.TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(csvRow(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (te *TradeExporter) exportToJSON(trades []domain.TradeRecord, outputPath string) error {
	exportData := struct {
		ExportTime time.Time            `json:"export_time"`
		TradeCount int                  `json:"trade_count"`
		Trades     []domain.TradeRecord `json:"trades"`
		Summary    ExportSummary        `json:"summary"`
	}{
		ExportTime: te.now().UTC(),
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    calculateSummary(trades),
	}
	return writeJSON(outputPath, exportData)
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported trades
type ExportSummary struct {
	TotalTrades      int                 `json:"total_trades"`
	SuccessfulTrades int                 `json:"successful_trades"`
	FailedTrades     int                 `json:"failed_trades"`
	BuyCount         int                 `json:"buy_count"`
	SellCount        int                 `json:"sell_count"`
	UniqueTokens     int                 `json:"unique_tokens"`
	TotalBuyAmount   decimal.Decimal     `json:"total_buy_amount"`
	TotalSellAmount  decimal.Decimal     `json:"total_sell_amount"`
	FailuresByKind   map[domain.Kind]int `json:"failures_by_kind,omitempty"`
	StartDate        time.Time           `json:"start_date"`
	EndDate          time.Time           `json:"end_date"`
}

// calculateSummary ожидает сделки, отсортированные по времени.
// Объём считается только по успешным ордерам.
func calculateSummary(trades []domain.TradeRecord) ExportSummary {
	summary := ExportSummary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return summary
	}

	summary.StartDate = trades[0].Timestamp
	summary.EndDate = trades[len(trades)-1].Timestamp

	tokenSet := make(map[string]struct{})
	for _, trade := range trades {
		tokenSet[trade.Token] = struct{}{}

		switch trade.Side {
		case domain.SideBuy:
			summary.BuyCount++
		case domain.SideSell:
			summary.SellCount++
		}

		if !trade.Success {
			summary.FailedTrades++
			if summary.FailuresByKind == nil {
				summary.FailuresByKind = make(map[domain.Kind]int)
			}
			summary.FailuresByKind[trade.ErrorKind]++
			continue
		}

		summary.SuccessfulTrades++
		if trade.Side == domain.SideBuy {
			summary.TotalBuyAmount = summary.TotalBuyAmount.Add(trade.Amount)
		} else {
			summary.TotalSellAmount = summary.TotalSellAmount.Add(trade.Amount)
		}
	}
	summary.UniqueTokens = len(tokenSet)

	return summary
}

// DailyReport represents a daily trading report
type DailyReport struct {
	Date            time.Time            `json:"date"`
	TradeCount      int                  `json:"trade_count"`
	Summary         ExportSummary        `json:"summary"`
	HourlyBreakdown []HourlyStats        `json:"hourly_breakdown"`
	Trades          []domain.TradeRecord `json:"trades"`
}

// HourlyStats represents trading statistics for an hour
type HourlyStats struct {
	Hour       int `json:"hour"`
	TradeCount int `json:"trade_count"`
	BuyCount   int `json:"buy_count"`
	SellCount  int `json:"sell_count"`
	Failed     int `json:"failed"`
}

// ExportDailyReport exports a daily summary report. Пустой путь означает, что сделок за день не было.
func (te *TradeExporter) ExportDailyReport(trades []domain.TradeRecord, date time.Time, outputDir string) (string, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	options := ExportOptions{
		StartTime: startOfDay,
		EndTime:   startOfDay.Add(24 * time.Hour),
	}

	filtered := te.filterTrades(trades, options)
	if len(filtered) == 0 {
		te.logger.Info("No trades for daily report", zap.Time("date", startOfDay))
		return "", nil
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))

	report := DailyReport{
		Date:            startOfDay,
		TradeCount:      len(filtered),
		Trades:          filtered,
		Summary:         calculateSummary(filtered),
		HourlyBreakdown: calculateHourlyBreakdown(filtered, date.Location()),
	}
	if err := writeJSON(outputPath, report); err != nil {
		return "", err
	}

	te.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("trades", len(filtered)))

	return outputPath, nil
}

func calculateHourlyBreakdown(trades []domain.TradeRecord, loc *time.Location) []HourlyStats {
	hourlyMap := make(map[int]*HourlyStats)
	for _, trade := range trades {
		hour := trade.Timestamp.In(loc).Hour()
		stats, exists := hourlyMap[hour]
		if !exists {
			stats = &HourlyStats{Hour: hour}
			hourlyMap[hour] = stats
		}

		stats.TradeCount++
		switch trade.Side {
		case domain.SideBuy:
			stats.BuyCount++
		case domain.SideSell:
			stats.SellCount++
		}
		if !trade.Success {
			stats.Failed++
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, exists := hourlyMap[hour]; exists {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown
}
