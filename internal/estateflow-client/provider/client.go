package provider

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Client implements Provider over a wallet's JSON-RPC endpoint.
type Client struct {
	url string
	rpc *rpc.Client

	feed  event.Feed
	scope event.SubscriptionScope

	mu     sync.Mutex
	closed bool
}

var _ Provider = (*Client)(nil)

func Dial(ctx context.Context, url string) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrNotDetected
	}

	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial wallet %s", url)
	}
	return NewClient(rc, url), nil
}

func NewClient(rc *rpc.Client, url string) *Client {
	return &Client{url: url, rpc: rc}
}

func (c *Client) URL() string { return c.url }

func (c *Client) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.rpc.CallContext(ctx, &raw, method, params...); err != nil {
		if pe, ok := AsError(err); ok {
			return nil, pe
		}
		return nil, errors.Wrap(err, method)
	}
	return raw, nil
}

func (c *Client) SubscribeEvents(ch chan<- Event) event.Subscription {
	return c.scope.Track(c.feed.Subscribe(ch))
}

// Listen forwards wallet notifications to event subscribers until ctx ends or the
// subscription is lost, in which case a disconnect event is sent first.
func (c *Client) Listen(ctx context.Context) error {
	accounts := make(chan []string, 4)
	accSub, err := c.rpc.EthSubscribe(ctx, accounts, string(EventAccountsChanged))
	if err != nil {
		if errors.Is(err, rpc.ErrNotificationsUnsupported) {
			return ErrEventsUnsupported
		}
		return errors.Wrap(err, "subscribe accountsChanged")
	}
	defer accSub.Unsubscribe()

	chains := make(chan string, 4)
	chainSub, err := c.rpc.EthSubscribe(ctx, chains, string(EventChainChanged))
	if err != nil {
		return errors.Wrap(err, "subscribe chainChanged")
	}
	defer chainSub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case a := <-accounts:
			c.feed.Send(Event{Kind: EventAccountsChanged, Accounts: a})
		case id := <-chains:
			c.feed.Send(Event{Kind: EventChainChanged, ChainID: id})
		case err := <-accSub.Err():
			return c.lost(err)
		case err := <-chainSub.Err():
			return c.lost(err)
		}
	}
}

func (c *Client) lost(err error) error {
	if err == nil {
		err = NewError(CodeDisconnected, "wallet disconnected")
	}
	log.Warn("wallet subscription lost", "url", c.url, "error", err)
	c.feed.Send(Event{Kind: EventDisconnect, Err: err})
	return err
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.scope.Close()
	c.rpc.Close()
}
