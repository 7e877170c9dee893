package provider

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 / EIP-1474 codes the client distinguishes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
	CodeRequestPending    = -32002
	CodeInternal          = -32603
)

// Error is a provider-reported failure. It satisfies rpc.Error and rpc.DataError so it
// travels unchanged through go-ethereum RPC servers and clients.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error %d", e.Code)
	}
	return e.Message
}

func (e *Error) ErrorCode() int { return e.Code }

func (e *Error) ErrorData() interface{} { return e.Data }

// AsError extracts a provider error from err, converting go-ethereum RPC errors.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}

	var re rpc.Error
	if errors.As(err, &re) {
		out := &Error{Code: re.ErrorCode(), Message: re.Error()}
		var de rpc.DataError
		if errors.As(err, &de) {
			out.Data = de.ErrorData()
		}
		return out, true
	}
	return nil, false
}

// Code returns the provider error code carried by err, or 0.
func Code(err error) int {
	if pe, ok := AsError(err); ok {
		return pe.Code
	}
	return 0
}

func IsCode(err error, code int) bool {
	return Code(err) == code
}
