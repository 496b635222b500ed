package detector

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/lp-sniper/internal/blockchain"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

func newTestExtractor(t *testing.T, fetcher *MockFetcher) *Extractor {
	e := NewExtractor(fetcher, NewRaydiumInitDecoder(""), zaptest.NewLogger(t))
	e.now = func() time.Time { return time.Unix(1700000000, 0) }
	return e
}

func TestExtract_TenAccounts(t *testing.T) {
	accounts := fixtureAccounts(MinAccounts)
	fetcher := new(MockFetcher)
	fetcher.On("GetTransaction", mock.Anything, "sig1").Return(fixtureTx("sig1",
		blockchain.Instruction{ProgramID: "ComputeBudget111111111111111111111111111111", Accounts: nil},
		blockchain.Instruction{ProgramID: RaydiumAMMV4, Accounts: accounts},
	), nil)

	det, err := newTestExtractor(t, fetcher).Extract(t.Context(), "sig1")
	require.NoError(t, err)

	assert.Equal(t, "sig1", det.Signature)
	assert.Equal(t, accounts[TokenAAccountIndex], det.TokenA)
	assert.Equal(t, accounts[TokenBAccountIndex], det.TokenB)
	assert.Equal(t, uint64(100), det.Slot)
	assert.Equal(t, time.Unix(1700000000, 0), det.DetectedAt)
	fetcher.AssertExpectations(t)
}

func TestExtract_UsesFirstMatchingInstruction(t *testing.T) {
	first := fixtureAccounts(12)
	second := fixtureAccounts(10)
	second[TokenAAccountIndex] = "Other"

	fetcher := new(MockFetcher)
	fetcher.On("GetTransaction", mock.Anything, "sig").Return(fixtureTx("sig",
		blockchain.Instruction{ProgramID: RaydiumAMMV4, Accounts: first},
		blockchain.Instruction{ProgramID: RaydiumAMMV4, Accounts: second},
	), nil)

	det, err := newTestExtractor(t, fetcher).Extract(t.Context(), "sig")
	require.NoError(t, err)
	assert.Equal(t, first[TokenAAccountIndex], det.TokenA)
}

func TestExtract_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		tx     *blockchain.Transaction
		err    error
		expect domain.Kind
	}{
		{
			name:   "five accounts",
			tx:     fixtureTx("sig", blockchain.Instruction{ProgramID: RaydiumAMMV4, Accounts: fixtureAccounts(5)}),
			expect: domain.KindMalformed,
		},
		{
			name:   "no matching instruction",
			tx:     fixtureTx("sig", blockchain.Instruction{ProgramID: "11111111111111111111111111111111", Accounts: fixtureAccounts(10)}),
			expect: domain.KindMalformed,
		},
		{
			name:   "missing transaction",
			tx:     nil,
			expect: domain.KindNotFound,
		},
		{
			name:   "rpc not found",
			err:    domain.E(domain.KindNotFound, "solbc.GetTransaction", errors.New("not found")),
			expect: domain.KindNotFound,
		},
		{
			name:   "unclassified rpc error",
			err:    errors.New("connection refused"),
			expect: domain.KindTransport,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(MockFetcher)
			fetcher.On("GetTransaction", mock.Anything, "sig").Return(tc.tx, tc.err)

			det, err := newTestExtractor(t, fetcher).Extract(t.Context(), "sig")
			require.Error(t, err)
			assert.Equal(t, tc.expect, domain.KindOf(err))
			assert.Empty(t, det.TokenA)
		})
	}
}

func TestRaydiumInitDecoder_CustomProgram(t *testing.T) {
	d := NewRaydiumInitDecoder("Custom111")
	assert.Equal(t, "Custom111", d.ProgramID())

	_, _, err := d.Decode(blockchain.Instruction{ProgramID: RaydiumAMMV4, Accounts: fixtureAccounts(10)})
	assert.True(t, errors.Is(err, domain.ErrMalformedData))
}
