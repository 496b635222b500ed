// internal/detector/mocks_test.go
package detector

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/rovshanmuradov/lp-sniper/internal/blockchain"
)

// MockFetcher реализует blockchain.TransactionFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetTransaction(ctx context.Context, signature string) (*blockchain.Transaction, error) {
	args := m.Called(ctx, signature)
	tx, _ := args.Get(0).(*blockchain.Transaction)
	return tx, args.Error(1)
}

// fixtureAccounts returns n distinct synthetic account addresses.
func fixtureAccounts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Account%02d", i)
	}
	return out
}

func fixtureTx(signature string, instructions ...blockchain.Instruction) *blockchain.Transaction {
	return &blockchain.Transaction{
		Signature:    signature,
		Slot:         100,
		Instructions: instructions,
	}
}
