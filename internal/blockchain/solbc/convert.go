// internal/blockchain/solbc/convert.go
package solbc

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/lp-sniper/internal/blockchain"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

// decodeTransaction разворачивает ответ getTransaction. Полный список ключей
// состоит из статических ключей сообщения и адресов, загруженных из lookup-таблиц
// (сначала writable, затем readonly).
func decodeTransaction(signature string, res *solanarpc.GetTransactionResult) (*blockchain.Transaction, error) {
	const op = "solbc.decodeTransaction"

	if res == nil || res.Transaction == nil {
		return nil, domain.Errorf(domain.KindNotFound, op, "transaction %s has no body", signature)
	}

	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, domain.E(domain.KindMalformed, op, err)
	}
	if tx == nil {
		return nil, domain.Errorf(domain.KindNotFound, op, "transaction %s has no body", signature)
	}

	keys := make(solana.PublicKeySlice, 0, len(tx.Message.AccountKeys))
	keys = append(keys, tx.Message.AccountKeys...)
	if res.Meta != nil {
		keys = append(keys, res.Meta.LoadedAddresses.Writable...)
		keys = append(keys, res.Meta.LoadedAddresses.ReadOnly...)
	}

	out := &blockchain.Transaction{
		Signature:    signature,
		Slot:         res.Slot,
		Failed:       res.Meta != nil && res.Meta.Err != nil,
		Instructions: make([]blockchain.Instruction, 0, len(tx.Message.Instructions)),
	}

	for i, ix := range tx.Message.Instructions {
		if int(ix.ProgramIDIndex) >= len(keys) {
			return nil, domain.E(domain.KindMalformed, op,
				fmt.Errorf("instruction %d: program index %d out of range (%d keys)", i, ix.ProgramIDIndex, len(keys)))
		}
		accounts := make([]string, len(ix.Accounts))
		for j, idx := range ix.Accounts {
			if int(idx) >= len(keys) {
				return nil, domain.E(domain.KindMalformed, op,
					fmt.Errorf("instruction %d: account index %d out of range (%d keys)", i, idx, len(keys)))
			}
			accounts[j] = keys[idx].String()
		}
		out.Instructions = append(out.Instructions, blockchain.Instruction{
			ProgramID: keys[ix.ProgramIDIndex].String(),
			Accounts:  accounts,
			Data:      []byte(ix.Data),
		})
	}

	return out, nil
}
