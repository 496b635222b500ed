// internal/storage/file/file_test.go
package file

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSnapshotStore_MissingFileIsEmpty(t *testing.T) {
	s, err := NewSnapshotStore(filepath.Join(t.TempDir(), "portfolio.json"), zaptest.NewLogger(t))
	require.NoError(t, err)

	got, err := s.Load(t.Context())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "portfolio.json")
	s, err := NewSnapshotStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	want := map[string]domain.Position{
		"MintA": domain.NewPosition("MintA", decimal.NewFromInt(100000), decimal.RequireFromString("123456.789")),
		"MintB": {TokenID: "MintB", Symbol: "BBB", Amount: decimal.Zero, Price: decimal.NewFromInt(7)},
	}
	require.NoError(t, s.Save(t.Context(), want))

	got, err := s.Load(t.Context())
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for k, p := range want {
		assert.True(t, p.Equal(got[k]), "position %s: want %+v got %+v", k, p, got[k])
	}

	// Снимок читается как обычный JSON с числами
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "MintA", raw["MintA"]["symbol"])
	assert.InDelta(t, 100000, raw["MintA"]["amount"], 0)

	// Временные файлы не остаются
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSnapshotStore_SaveOverwrites(t *testing.T) {
	s, err := NewSnapshotStore(filepath.Join(t.TempDir(), "portfolio.json"), zaptest.NewLogger(t))
	require.NoError(t, err)

	first := map[string]domain.Position{"MintA": domain.NewPosition("MintA", decimal.NewFromInt(1), decimal.NewFromInt(1))}
	require.NoError(t, s.Save(t.Context(), first))
	require.NoError(t, s.Save(t.Context(), map[string]domain.Position{}))

	got, err := s.Load(t.Context())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshotStore_LegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	legacy := `{"MintA":{"symbol":"MintA","amount":90000,"price":"1500"}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	s, err := NewSnapshotStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	got, err := s.Load(t.Context())
	require.NoError(t, err)
	assert.True(t, got["MintA"].Amount.Equal(decimal.NewFromInt(90000)))
	assert.True(t, got["MintA"].Price.Equal(decimal.NewFromInt(1500)))
}

func TestSnapshotStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := NewSnapshotStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = s.Load(t.Context())
	assert.True(t, errors.Is(err, domain.ErrMalformedData))
}

func TestJournal_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transaction.log")
	j, err := NewJournal(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	ok := domain.NewTradeRecord(domain.SideBuy, "MintA", decimal.NewFromInt(100000),
		domain.OrderResult{Signatures: []string{"sig1"}}, nil)
	failed := domain.NewTradeRecord(domain.SideSell, "MintA", decimal.NewFromInt(10000),
		domain.OrderResult{}, domain.Errorf(domain.KindOrder, "swap", "rejected"))
	require.NoError(t, j.Append(t.Context(), ok))
	require.NoError(t, j.Append(t.Context(), failed))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []domain.TradeRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec domain.TradeRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		got = append(got, rec)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "sig1", got[0].Signature)
	assert.True(t, got[0].Success)
	assert.False(t, got[1].Success)
	assert.Equal(t, domain.KindOrder, got[1].ErrorKind)
}

func TestCSVJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSVJournal(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	rec := domain.NewTradeRecord(domain.SideBuy, "MintA", decimal.NewFromInt(5), domain.OrderResult{}, nil)
	require.NoError(t, j.Append(t.Context(), rec))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "MintA", rows[1][3])
	assert.Equal(t, "true", rows[1][7])
}
