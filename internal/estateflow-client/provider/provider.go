// Package provider is the consumed side of an EIP-1193 style wallet: request/response
// JSON-RPC calls plus account, chain and disconnect notifications.
package provider

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/event"
)

const (
	MethodAccounts           = "eth_accounts"
	MethodRequestAccounts    = "eth_requestAccounts"
	MethodChainID            = "eth_chainId"
	MethodSwitchChain        = "wallet_switchEthereumChain"
	MethodAddChain           = "wallet_addEthereumChain"
	MethodSendTransaction    = "eth_sendTransaction"
	MethodTransactionReceipt = "eth_getTransactionReceipt"
)

type EventKind string

const (
	EventAccountsChanged EventKind = "accountsChanged"
	EventChainChanged    EventKind = "chainChanged"
	EventDisconnect      EventKind = "disconnect"
)

// Event is one wallet notification. Accounts is set for accountsChanged, ChainID for
// chainChanged and Err (when known) for disconnect.
type Event struct {
	Kind     EventKind
	Accounts []string
	ChainID  string
	Err      error
}

// Provider is the wallet surface the rest of the client depends on.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	SubscribeEvents(ch chan<- Event) event.Subscription
}

var (
	ErrNotDetected       = errors.New("wallet provider not detected")
	ErrEventsUnsupported = errors.New("wallet transport does not support notifications")
)

// IsNull reports whether a raw result carries no value.
func IsNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func DecodeAccounts(raw json.RawMessage) ([]string, error) {
	if IsNull(raw) {
		return nil, nil
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, errors.Wrap(err, "decode accounts")
	}
	return accounts, nil
}

func DecodeString(raw json.RawMessage) (string, error) {
	if IsNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Wrap(err, "decode string result")
	}
	return s, nil
}
