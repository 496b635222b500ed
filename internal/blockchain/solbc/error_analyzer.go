package solbc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

// JSON-RPC codes that will not change on another node.
const (
	codeInvalidParams     = -32602
	codeSimulationFailed  = -32002
	codeTxVersionTooHigh  = -32015
	codeSlotSkipped       = -32007
	codeLongTermStorage   = -32009
	codeBlockNotAvailable = -32004
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// ErrorAnalyzer classifies Solana RPC errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// IsRetryable reports whether the call is worth repeating on another node.
func (ea *ErrorAnalyzer) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, solanarpc.ErrNotFound) ||
		errors.Is(err, context.Canceled) {
		return false
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeInvalidParams, codeSimulationFailed, codeTxVersionTooHigh,
			codeSlotSkipped, codeLongTermStorage, codeBlockNotAvailable:
			return false
		}
	}
	return true
}

// Classify maps an RPC error onto a domain error kind.
func (ea *ErrorAnalyzer) Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, solanarpc.ErrNotFound) {
		return domain.E(domain.KindNotFound, op, err)
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeInvalidParams, codeTxVersionTooHigh:
			return domain.E(domain.KindMalformed, op, err)
		case codeSimulationFailed:
			return domain.E(domain.KindOrder, op, err)
		}
	}
	return domain.E(domain.KindTransport, op, err)
}

// AnalyzeRPCError extracts simulation details from a jsonrpc.RPCError for logging
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{
			"error": "No error provided",
		}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return map[string]interface{}{
			"type":    "generic_error",
			"message": err.Error(),
		}
	}

	result := map[string]interface{}{
		"type":    "rpc_error",
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
	}

	if !strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return result
	}
	result["simulation_failed"] = true

	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return result
	}
	if logs, ok := dataMap["logs"].([]interface{}); ok {
		result["logs"] = logs
		for _, logEntry := range logs {
			logStr, ok := logEntry.(string)
			if !ok || !strings.Contains(logStr, "AnchorError occurred") {
				continue
			}
			anchorErr := parseAnchorErrorLog(logStr)
			result["anchor_error"] = anchorErr
			ea.logger.Warn("Anchor error detected",
				zap.Int("code", anchorErr.Code),
				zap.String("name", anchorErr.Name),
				zap.String("message", anchorErr.Msg))
		}
	}
	if ixErr, ok := dataMap["err"].(map[string]interface{}); ok {
		result["instruction_error"] = ixErr
	}
	return result
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if _, rest, ok := strings.Cut(logStr, "Error Number:"); ok {
		num, _, _ := strings.Cut(rest, ".")
		fmt.Sscanf(strings.TrimSpace(num), "%d", &result.Code)
	}
	if _, rest, ok := strings.Cut(logStr, "Error Code:"); ok {
		name, _, _ := strings.Cut(rest, ".")
		result.Name = strings.TrimSpace(name)
	}
	if _, rest, ok := strings.Cut(logStr, "Error Message:"); ok {
		msg, _, _ := strings.Cut(rest, ".")
		result.Msg = strings.TrimSpace(msg)
	}

	return result
}
