package rpc

import (
	"errors"
	"fmt"
	"strings"
)

// Error is an error reported by the node in the JSON-RPC response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// readOnly lists the methods that may be sent again after a transport
// failure. A timed-out sendtoaddress may already have paid.
var readOnly = map[string]bool{
	"getblockcount":   true,
	"getbalance":      true,
	"gettransaction":  true,
	"validateaddress": true,
}

// Retryable reports whether method is safe to repeat.
func Retryable(method string) bool {
	return readOnly[method]
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError determines whether a failed call is worth another attempt.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry
	}

	// Anything the node answered is deterministic.
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return ActionFatal
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "http 401") || strings.Contains(s, "http 403") ||
		strings.Contains(s, "http 404") || strings.Contains(s, "unauthorized") {
		return ActionFatal
	}

	// Default to Retry (network, 5xx, timeouts)
	return ActionRetry
}
