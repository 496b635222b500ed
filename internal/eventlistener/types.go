package eventlistener

import (
	"encoding/json"
	"time"
)

// Notification is a single logsNotification delivered by the node.
type Notification struct {
	Signature string   `json:"signature"`
	Slot      uint64   `json:"slot"`
	Logs      []string `json:"logs"`
	Err       any      `json:"err"`
}

// Failed reports whether the transaction behind the notification failed.
func (n Notification) Failed() bool {
	return n.Err != nil
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 30 * time.Second
	maxAttempts    = 5
	readTimeout    = 10 * time.Second
	writeTimeout   = 5 * time.Second
	pingInterval   = 20 * time.Second

	notificationMethod = "logsNotification"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcMessage struct {
	ID     *uint64         `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
	Method string          `json:"method,omitempty"`
	Params *struct {
		Subscription uint64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string   `json:"signature"`
				Err       any      `json:"err"`
				Logs      []string `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params,omitempty"`
}

func newLogsSubscribe(id uint64, programID, commitment string) rpcRequest {
	return rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "logsSubscribe",
		Params: []any{
			map[string]any{"mentions": []string{programID}},
			map[string]any{"commitment": commitment},
		},
	}
}
