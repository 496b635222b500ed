// internal/gateway/memo.go
package gateway

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/memo"
)

// appendMemo adds a memo instruction signed by signer to an unsigned message.
// Messages with address table lookups are left untouched: a new static key
// would shift every lookup index.
func appendMemo(tx *solana.Transaction, signer solana.PublicKey, text string) (bool, error) {
	msg := &tx.Message
	if len(msg.AddressTableLookups) > 0 {
		return false, nil
	}

	signerIdx := -1
	for i := 0; i < int(msg.Header.NumRequiredSignatures) && i < len(msg.AccountKeys); i++ {
		if msg.AccountKeys[i].Equals(signer) {
			signerIdx = i
			break
		}
	}
	if signerIdx < 0 {
		return false, fmt.Errorf("memo signer %s is not a transaction signer", signer)
	}

	programIdx := -1
	for i, k := range msg.AccountKeys {
		if k.Equals(memo.ProgramID) {
			programIdx = i
			break
		}
	}
	if programIdx < 0 {
		if len(msg.AccountKeys) >= 256 {
			return false, fmt.Errorf("message has no room for the memo program key")
		}
		msg.AccountKeys = append(msg.AccountKeys, memo.ProgramID)
		msg.Header.NumReadonlyUnsignedAccounts++
		programIdx = len(msg.AccountKeys) - 1
	}

	msg.Instructions = append(msg.Instructions, solana.CompiledInstruction{
		ProgramIDIndex: uint16(programIdx),
		Accounts:       []uint16{uint16(signerIdx)},
		Data:           solana.Base58(text),
	})
	return true, nil
}
