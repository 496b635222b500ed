// internal/report/report_test.go
package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_PoolFound(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	det := domain.PoolDetection{
		Signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb",
		TokenA:    "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr",
		TokenB:    "So11111111111111111111111111111111111111112",
	}
	require.NoError(t, c.PoolFound(det))

	out := buf.String()
	assert.Contains(t, out, "New LP Found")
	assert.Contains(t, out, "https://explorer.solana.com/tx/"+det.Signature)
	assert.Contains(t, out, det.TokenA)
	assert.Contains(t, out, det.TokenB)
	assert.Contains(t, strings.ToUpper(out), "ACCOUNT PUBLIC KEY")
	assert.NotContains(t, out, "Opens at")

	buf.Reset()
	det.OpenTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	det.InitCoinAmount = 9
	require.NoError(t, c.PoolFound(det))
	assert.Contains(t, buf.String(), "Opens at 2026-03-14T12:00:00Z  coin=9 pc=0")
}

func TestConsole_Portfolio(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, c.Portfolio(nil))
	assert.Contains(t, buf.String(), "Portfolio is empty")

	buf.Reset()
	positions := []domain.Position{
		domain.NewPosition("MintA", decimal.NewFromInt(100000), decimal.RequireFromString("0.25")),
		{TokenID: "MintB", Symbol: "BBB", Amount: decimal.NewFromInt(9), Price: decimal.Zero},
	}
	require.NoError(t, c.Portfolio(positions))

	out := buf.String()
	assert.Contains(t, out, "MintA")
	assert.Contains(t, out, "100000")
	assert.Contains(t, out, "0.25")
	assert.Contains(t, out, "BBB")
}
