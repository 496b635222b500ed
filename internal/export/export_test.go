package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func generateTestTrades() []domain.TradeRecord {
	amount := decimal.NewFromInt(100000)
	return []domain.TradeRecord{
		{ID: "1", Timestamp: baseTime.Add(-2 * time.Hour), Side: domain.SideBuy, Token: "token1aaaaaaaaaa", Amount: amount, Success: true, Signature: "s1"},
		{ID: "2", Timestamp: baseTime.Add(-90 * time.Minute), Side: domain.SideBuy, Token: "token2bbbbbbbbbb", Amount: amount, Success: true, Signature: "s2"},
		{ID: "3", Timestamp: baseTime.Add(-20 * time.Minute), Side: domain.SideSell, Token: "token1aaaaaaaaaa", Amount: decimal.NewFromInt(10000), Success: true, Signature: "s3"},
		{ID: "4", Timestamp: baseTime.Add(-5 * time.Minute), Side: domain.SideSell, Token: "token2bbbbbbbbbb", Amount: decimal.NewFromInt(10000), Success: false, ErrorKind: domain.KindRouteNotFound, ErrorMsg: "no route"},
	}
}

func newTestExporter() *TradeExporter {
	te := NewTradeExporter(zap.NewNop())
	te.now = func() time.Time { return baseTime }
	return te
}

func TestTradeExportCSV(t *testing.T) {
	exporter := newTestExporter()
	tempDir := t.TempDir()

	outputPath, err := exporter.ExportTrades(generateTestTrades(), ExportOptions{
		Format:    FormatCSV,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	if filepath.Base(outputPath) != "trades_all_20260314_120000.csv" {
		t.Errorf("Unexpected file name %s", filepath.Base(outputPath))
	}

	f, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("Expected header + 4 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(CSVHeaders(), ",") {
		t.Errorf("Unexpected header %v", rows[0])
	}
	if rows[4][8] != string(domain.KindRouteNotFound) {
		t.Errorf("Expected error kind in last row, got %q", rows[4][8])
	}
}

func TestTradeExportJSON(t *testing.T) {
	exporter := newTestExporter()

	outputPath, err := exporter.ExportTrades(generateTestTrades(), ExportOptions{
		Format:    FormatJSON,
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}
	if !strings.Contains(string(content), `"trade_count": 4`) {
		t.Errorf("Export is missing trade count:\n%s", content)
	}
}

func TestTradeExportFilters(t *testing.T) {
	exporter := newTestExporter()
	trades := generateTestTrades()

	tests := []struct {
		name    string
		options ExportOptions
		want    int
	}{
		{"time window", ExportOptions{StartTime: baseTime.Add(-time.Hour), EndTime: baseTime}, 2},
		{"token", ExportOptions{TokenFilter: "token1aaaaaaaaaa"}, 2},
		{"side", ExportOptions{SideFilter: domain.SideSell}, 2},
		{"success only", ExportOptions{OnlySuccess: true}, 3},
		{"sell success", ExportOptions{SideFilter: domain.SideSell, OnlySuccess: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exporter.filterTrades(trades, tt.options)
			if len(got) != tt.want {
				t.Errorf("Expected %d trades, got %d", tt.want, len(got))
			}
		})
	}

	_, err := exporter.ExportTrades(trades, ExportOptions{Format: FormatCSV, TokenFilter: "missing", OutputDir: t.TempDir()})
	if err == nil {
		t.Error("Expected error when nothing matches")
	}
}

func TestGenerateFilename_ShortToken(t *testing.T) {
	exporter := newTestExporter()
	name := exporter.generateFilename(ExportOptions{Format: FormatJSON, SideFilter: domain.SideBuy, TokenFilter: "abc"})
	if name != "trades_buy_abc_20260314_120000.json" {
		t.Errorf("Unexpected name %s", name)
	}
}

func TestDailyReportExport(t *testing.T) {
	exporter := newTestExporter()
	tempDir := t.TempDir()

	outputPath, err := exporter.ExportDailyReport(generateTestTrades(), baseTime, tempDir)
	if err != nil {
		t.Fatalf("Failed to export daily report: %v", err)
	}
	if filepath.Base(outputPath) != "daily_report_20260314.json" {
		t.Errorf("Unexpected report name %s", outputPath)
	}

	outputPath, err = exporter.ExportDailyReport(generateTestTrades(), baseTime.AddDate(0, 0, 1), tempDir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outputPath != "" {
		t.Errorf("Expected no report for empty day, got %s", outputPath)
	}
}

func TestExportSummaryCalculation(t *testing.T) {
	summary := calculateSummary(generateTestTrades())

	if summary.TotalTrades != 4 {
		t.Errorf("Expected 4 total trades, got %d", summary.TotalTrades)
	}
	if summary.BuyCount != 2 || summary.SellCount != 2 {
		t.Errorf("Expected 2 buys and 2 sells, got %d/%d", summary.BuyCount, summary.SellCount)
	}
	if summary.SuccessfulTrades != 3 || summary.FailedTrades != 1 {
		t.Errorf("Expected 3 ok and 1 failed, got %d/%d", summary.SuccessfulTrades, summary.FailedTrades)
	}
	if summary.UniqueTokens != 2 {
		t.Errorf("Expected 2 unique tokens, got %d", summary.UniqueTokens)
	}
	if !summary.TotalBuyAmount.Equal(decimal.NewFromInt(200000)) {
		t.Errorf("Unexpected buy amount %s", summary.TotalBuyAmount)
	}
	if !summary.TotalSellAmount.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Failed sell must not count toward volume, got %s", summary.TotalSellAmount)
	}
	if summary.FailuresByKind[domain.KindRouteNotFound] != 1 {
		t.Errorf("Expected one RouteNotFound failure, got %v", summary.FailuresByKind)
	}
}

func TestHourlyBreakdown(t *testing.T) {
	breakdown := calculateHourlyBreakdown(generateTestTrades(), time.UTC)
	if len(breakdown) != 2 {
		t.Fatalf("Expected 2 hour buckets, got %d", len(breakdown))
	}
	if breakdown[0].Hour != 10 || breakdown[0].BuyCount != 2 {
		t.Errorf("Unexpected first bucket %+v", breakdown[0])
	}
	if breakdown[1].Hour != 11 || breakdown[1].Failed != 1 {
		t.Errorf("Unexpected second bucket %+v", breakdown[1])
	}
}

func TestReadJournal(t *testing.T) {
	dir := t.TempDir()

	trades, skipped, err := ReadJournal(filepath.Join(dir, "missing.log"))
	if err != nil || len(trades) != 0 || skipped != 0 {
		t.Fatalf("Missing journal should be empty, got %d/%d/%v", len(trades), skipped, err)
	}

	path := filepath.Join(dir, "transaction.log")
	content := `{"id":"1","timestamp":"2026-03-14T10:00:00Z","side":"buy","token":"t1","amount":"100000","success":true}
not json

{"id":"2","timestamp":"2026-03-14T10:05:00Z","side":"sell","token":"t1","amount":"10000","success":false,"error_kind":"route_not_found"}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	trades, skipped, err = ReadJournal(path)
	if err != nil {
		t.Fatalf("ReadJournal: %v", err)
	}
	if len(trades) != 2 || skipped != 1 {
		t.Fatalf("Expected 2 trades and 1 skipped, got %d/%d", len(trades), skipped)
	}
	if !trades[0].Amount.Equal(decimal.NewFromInt(100000)) || trades[1].ErrorKind != domain.KindRouteNotFound {
		t.Errorf("Unexpected decode %+v", trades)
	}
}
