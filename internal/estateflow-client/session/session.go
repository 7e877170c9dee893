// Package session tracks the wallet connection: whether a wallet is installed, whether an
// account is authorized and the last user-visible error.
package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/constants"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/metrics"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/provider"
)

type State int

const (
	StateUninitialized State = iota
	StateDisconnected
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "uninitialized"
	}
}

// Session is the read-only view handed to callers.
type Session struct {
	IsInstalled  bool   `json:"isInstalled"`
	IsConnected  bool   `json:"isConnected"`
	IsConnecting bool   `json:"isConnecting"`
	Account      string `json:"account,omitempty"`
	Error        string `json:"error,omitempty"`
	State        string `json:"state"`
}

// Detector locates the wallet. A nil provider (or any error) means not installed.
type Detector func(ctx context.Context) (provider.Provider, error)

// ChainHook runs after the session was rebuilt for a new chain.
type ChainHook func(ctx context.Context, chainID string)

var ErrConnectInProgress = errors.New("wallet connection already in progress")

type Tracker struct {
	detect Detector

	mu          sync.Mutex
	initialized bool
	prov        provider.Provider
	state       State
	account     string
	connecting  bool // eth_requestAccounts outstanding
	errMsg      string
	role        Role
	hooks       []ChainHook

	feed event.Feed
}

func NewTracker(detect Detector) *Tracker {
	return &Tracker{detect: detect, role: DefaultRole}
}

// Init detects the wallet once and loads already-authorized accounts without prompting.
func (t *Tracker) Init(ctx context.Context) error {
	t.mu.Lock()
	if t.initialized {
		t.mu.Unlock()
		return nil
	}
	t.initialized = true
	t.mu.Unlock()

	var p provider.Provider
	if t.detect != nil {
		found, err := t.detect(ctx)
		if err != nil {
			log.Warn("wallet not detected", "error", err)
		} else {
			p = found
		}
	}

	t.mu.Lock()
	t.prov = p
	t.state = StateDisconnected
	t.mu.Unlock()

	if p == nil {
		t.publish()
		return nil
	}
	t.reload(ctx)
	return nil
}

// reload rebuilds the session from the provider's authorized accounts and clears the error.
func (t *Tracker) reload(ctx context.Context) {
	p := t.Provider()
	if p == nil {
		return
	}

	var accounts []string
	raw, err := p.Request(ctx, provider.MethodAccounts)
	if err == nil {
		accounts, err = provider.DecodeAccounts(raw)
	}
	if err != nil {
		log.Error("failed to read wallet accounts", "error", err)
	}

	t.mu.Lock()
	t.errMsg = ""
	if len(accounts) > 0 {
		t.state = StateConnected
		t.account = accounts[0]
	} else {
		t.state = StateDisconnected
		t.account = ""
	}
	t.mu.Unlock()
	t.publish()
}

// Run applies provider notifications until ctx ends.
func (t *Tracker) Run(ctx context.Context) error {
	return t.Follow()(ctx)
}

// Follow subscribes to provider notifications before returning, so nothing sent after
// it returns is missed. The returned loop applies them until ctx ends.
func (t *Tracker) Follow() func(ctx context.Context) error {
	p := t.Provider()
	if p == nil {
		return func(context.Context) error { return nil }
	}

	events := make(chan provider.Event, 16)
	sub := p.SubscribeEvents(events)

	return func(ctx context.Context) error {
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-sub.Err():
				return err
			case ev := <-events:
				t.handle(ctx, ev)
			}
		}
	}
}

func (t *Tracker) handle(ctx context.Context, ev provider.Event) {
	metrics.SessionEvents.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case provider.EventAccountsChanged:
		t.mu.Lock()
		if len(ev.Accounts) == 0 {
			t.state = StateDisconnected
			t.account = ""
		} else {
			t.state = StateConnected
			t.account = ev.Accounts[0]
		}
		t.mu.Unlock()
		t.publish()

	case provider.EventDisconnect:
		log.Info("wallet disconnected", "error", ev.Err)
		t.mu.Lock()
		t.state = StateDisconnected
		t.account = ""
		t.mu.Unlock()
		t.publish()

	case provider.EventChainChanged:
		log.Info("wallet chain changed", "chainId", ev.ChainID)
		t.reload(ctx)

		t.mu.Lock()
		hooks := append([]ChainHook(nil), t.hooks...)
		t.mu.Unlock()
		for _, h := range hooks {
			h(ctx, ev.ChainID)
		}
	}
}

// Connect asks the wallet to authorize an account. The returned error carries the same
// message that is stored on the session.
func (t *Tracker) Connect(ctx context.Context) error {
	t.mu.Lock()
	p := t.prov
	if p == nil {
		t.errMsg = constants.SessionNotDetectedText
		t.mu.Unlock()
		t.publish()
		metrics.ConnectAttempts.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return errors.New(constants.SessionNotDetectedText)
	}
	if t.connecting {
		t.mu.Unlock()
		return ErrConnectInProgress
	}
	t.connecting = true
	if t.state != StateConnected {
		t.state = StateConnecting
	}
	t.errMsg = ""
	t.mu.Unlock()
	t.publish()

	var accounts []string
	raw, err := p.Request(ctx, provider.MethodRequestAccounts)
	if err == nil {
		accounts, err = provider.DecodeAccounts(raw)
	}

	msg := ""
	switch {
	case err != nil:
		msg = connectErrorMessage(err)
	case len(accounts) == 0:
		msg = constants.SessionNoAccountsText
	}

	t.mu.Lock()
	t.connecting = false
	if msg == "" {
		t.state = StateConnected
		t.account = accounts[0]
	} else {
		t.errMsg = msg
		if t.state == StateConnecting {
			if t.account != "" {
				t.state = StateConnected
			} else {
				t.state = StateDisconnected
			}
		}
	}
	account := t.account
	t.mu.Unlock()
	t.publish()

	if msg != "" {
		outcome := metrics.OutcomeFailed
		if provider.IsCode(err, provider.CodeUserRejected) {
			outcome = metrics.OutcomeRejected
		}
		metrics.ConnectAttempts.WithLabelValues(outcome).Inc()
		log.Warn("wallet connect failed", "error", msg)
		return errors.New(msg)
	}

	metrics.ConnectAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Info("wallet connected", "account", account)
	return nil
}

func connectErrorMessage(err error) string {
	pe, ok := provider.AsError(err)
	if !ok {
		if msg := err.Error(); msg != "" {
			return msg
		}
		return constants.SessionConnectFailedText
	}
	switch pe.Code {
	case provider.CodeUserRejected:
		return constants.SessionRejectedText
	case provider.CodeRequestPending:
		return constants.SessionRequestPendingText
	}
	if pe.Message != "" {
		return pe.Message
	}
	return constants.SessionConnectFailedText
}

// Disconnect forgets the account locally. Wallets expose no revoke call, so nothing is sent.
func (t *Tracker) Disconnect() {
	t.mu.Lock()
	if t.state != StateUninitialized {
		t.state = StateDisconnected
	}
	t.account = ""
	t.errMsg = ""
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) ClearError() {
	t.mu.Lock()
	t.errMsg = ""
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) Snapshot() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Session {
	return Session{
		IsInstalled:  t.prov != nil,
		IsConnected:  t.state == StateConnected,
		IsConnecting: t.connecting,
		Account:      t.account,
		Error:        t.errMsg,
		State:        t.state.String(),
	}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Provider returns the detected wallet or nil.
func (t *Tracker) Provider() provider.Provider {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prov
}

// Account returns the connected account, empty when not connected.
func (t *Tracker) Account() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateConnected {
		return ""
	}
	return t.account
}

func (t *Tracker) OnChainChanged(h ChainHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, h)
}

// Subscribe delivers a snapshot after every change. Receivers must keep draining ch
// until they unsubscribe.
func (t *Tracker) Subscribe(ch chan<- Session) event.Subscription {
	return t.feed.Subscribe(ch)
}

func (t *Tracker) publish() {
	s := t.Snapshot()
	if s.IsConnected {
		metrics.SessionConnected.Set(1)
	} else {
		metrics.SessionConnected.Set(0)
	}
	t.feed.Send(s)
}
