// internal/detector/decoder.go
package detector

import (
	"fmt"

	"github.com/rovshanmuradov/lp-sniper/internal/blockchain"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

// RaydiumAMMV4 is the Raydium AMM v4 program ID.
const RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

// Raydium AMM v4 initialize2 account layout.
const (
	TokenAAccountIndex = 8
	TokenBAccountIndex = 9
	MinAccounts        = 10
)

// Decoder extracts the two pool token accounts from a program instruction.
type Decoder interface {
	ProgramID() string
	Decode(ix blockchain.Instruction) (tokenA, tokenB string, err error)
}

// RaydiumInitDecoder decodes Raydium AMM v4 initialize2 instructions.
type RaydiumInitDecoder struct {
	programID string
}

// NewRaydiumInitDecoder returns a decoder bound to programID.
// An empty programID means Raydium AMM v4.
func NewRaydiumInitDecoder(programID string) *RaydiumInitDecoder {
	if programID == "" {
		programID = RaydiumAMMV4
	}
	return &RaydiumInitDecoder{programID: programID}
}

func (d *RaydiumInitDecoder) ProgramID() string { return d.programID }

func (d *RaydiumInitDecoder) Decode(ix blockchain.Instruction) (string, string, error) {
	const op = "detector.RaydiumInitDecoder.Decode"

	if ix.ProgramID != d.programID {
		return "", "", domain.Errorf(domain.KindMalformed, op, "instruction program %s, want %s", ix.ProgramID, d.programID)
	}
	if len(ix.Accounts) < MinAccounts {
		return "", "", domain.E(domain.KindMalformed, op,
			fmt.Errorf("instruction has %d accounts, need at least %d", len(ix.Accounts), MinAccounts))
	}

	tokenA := ix.Accounts[TokenAAccountIndex]
	tokenB := ix.Accounts[TokenBAccountIndex]
	if tokenA == "" || tokenB == "" {
		return "", "", domain.Errorf(domain.KindMalformed, op, "empty token account")
	}
	return tokenA, tokenB, nil
}
