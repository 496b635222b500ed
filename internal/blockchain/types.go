// internal/blockchain/types.go
package blockchain

// Transaction is the chain-agnostic view of a fetched transaction that the
// pool extractor works on.
type Transaction struct {
	Signature    string
	Slot         uint64
	Failed       bool
	Instructions []Instruction
}

// Instruction is a top-level instruction with its account list resolved to
// base58 addresses, in instruction order.
type Instruction struct {
	ProgramID string
	Accounts  []string
	Data      []byte
}

// FindByProgram returns the first top-level instruction addressed to programID.
func (t *Transaction) FindByProgram(programID string) (Instruction, bool) {
	if t == nil {
		return Instruction{}, false
	}
	for _, ix := range t.Instructions {
		if ix.ProgramID == programID {
			return ix, true
		}
	}
	return Instruction{}, false
}
