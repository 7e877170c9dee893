// Package providertest offers a scriptable in-memory wallet for tests.
package providertest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/event"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/provider"
)

type Call struct {
	Method string
	Params []any
}

// Handler answers one method call. The result is JSON-encoded before it is returned.
type Handler func(params []any) (any, error)

type Provider struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call

	feed event.Feed
}

var _ provider.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{handlers: make(map[string]Handler)}
}

func (p *Provider) Handle(method string, h Handler) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[method] = h
	return p
}

func (p *Provider) Respond(method string, result any) *Provider {
	return p.Handle(method, func([]any) (any, error) { return result, nil })
}

func (p *Provider) Fail(method string, err error) *Provider {
	return p.Handle(method, func([]any) (any, error) { return nil, err })
}

func (p *Provider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.calls = append(p.calls, Call{Method: method, Params: params})
	h := p.handlers[method]
	p.mu.Unlock()

	if h == nil {
		return nil, provider.NewError(provider.CodeUnsupportedMethod, "unsupported method "+method)
	}
	res, err := h(params)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, errors.Wrap(err, "encode fake result")
	}
	return raw, nil
}

func (p *Provider) SubscribeEvents(ch chan<- provider.Event) event.Subscription {
	return p.feed.Subscribe(ch)
}

// Emit delivers ev to every subscriber and returns how many received it.
func (p *Provider) Emit(ev provider.Event) int {
	return p.feed.Send(ev)
}

func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *Provider) Methods() []string {
	calls := p.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Method)
	}
	return out
}

func (p *Provider) CallCount(method string) int {
	n := 0
	for _, c := range p.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}
