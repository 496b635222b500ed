// internal/report/report.go
package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/eventlistener"
)

// Console prints human-readable tables for detections and the portfolio.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole пишет в out; nil означает stdout.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// PoolFound prints the "New LP Found" table for one detection.
func (c *Console) PoolFound(det domain.PoolDetection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n🆕 New LP Found  %s\n", eventlistener.ExplorerURL(det.Signature))
	table := tablewriter.NewWriter(c.out)
	table.Header("Token", "Account Public Key")
	if err := table.Append("A", det.TokenA); err != nil {
		return err
	}
	if err := table.Append("B", det.TokenB); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if !det.OpenTime.IsZero() {
		fmt.Fprintf(c.out, "⏰ Opens at %s  coin=%d pc=%d\n",
			det.OpenTime.UTC().Format(time.RFC3339), det.InitCoinAmount, det.InitPcAmount)
	}
	return nil
}

// Portfolio prints every held position, sorted as given.
func (c *Console) Portfolio(positions []domain.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(positions) == 0 {
		_, err := fmt.Fprintln(c.out, "📭 Portfolio is empty")
		return err
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Token", "Symbol", "Amount", "Ref Price", "Opened")
	for i, p := range positions {
		opened := "-"
		if !p.OpenedAt.IsZero() {
			opened = p.OpenedAt.Format("2006-01-02 15:04:05")
		}
		if err := table.Append(
			fmt.Sprintf("%d", i+1),
			p.TokenID,
			p.Symbol,
			p.Amount.String(),
			p.Price.String(),
			opened,
		); err != nil {
			return err
		}
	}
	return table.Render()
}
