package chains

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/qa_evm"
	"github.com/quantumauth-io/quantum-go-utils/retry"
)

// HeadSubscriber pushes new headers; *ethclient.Client over a websocket satisfies it.
type HeadSubscriber interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// HeadCache keeps the latest block header of one network. It follows newHeads when a
// subscriber is available and polls otherwise, or once the subscription drops.
type HeadCache struct {
	client     qa_evm.BlockchainClient
	latest     atomic.Pointer[types.Header]
	receivedAt atomic.Pointer[time.Time]
}

func NewHeadCache(ctx context.Context, client qa_evm.BlockchainClient, subscriber HeadSubscriber, every time.Duration) (*HeadCache, error) {
	h := &HeadCache{client: client}
	if err := h.refresh(ctx); err != nil {
		return nil, err
	}
	go func() {
		if subscriber != nil {
			h.follow(ctx, subscriber)
		}
		h.maintain(ctx, every)
	}()
	return h, nil
}

// follow returns when ctx ends or the subscription cannot be kept.
func (h *HeadCache) follow(ctx context.Context, subscriber HeadSubscriber) {
	headers := make(chan *types.Header, 16)
	sub, err := subscriber.SubscribeNewHead(ctx, headers)
	if err != nil {
		log.Warn("newHeads subscription failed; polling instead", "error", err)
		return
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			log.Warn("newHeads subscription dropped; polling instead", "error", err)
			return
		case header := <-headers:
			h.store(header)
		}
	}
}

func (h *HeadCache) maintain(ctx context.Context, every time.Duration) {
	if ctx.Err() != nil {
		return
	}
	cfg := retry.DefaultConfig()
	cfg.MaxDelayBeforeRetrying = every
	cfg.InitialDelayBeforeRetrying = every / 10

	timer := time.NewTimer(every)
	defer timer.Stop()
	for {
		timer.Reset(every)
		select {
		case <-ctx.Done():
			log.Info("head cache stopped")
			return
		case <-timer.C:
			_, _ = retry.Retry(ctx, cfg,
				func(ctx context.Context) ([]interface{}, error) {
					return nil, h.refresh(ctx)
				},
				nil,
				"refresh latest header")
		}
	}
}

func (h *HeadCache) refresh(ctx context.Context) error {
	header, err := h.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "fetch latest header")
	}
	h.store(header)
	return nil
}

func (h *HeadCache) store(header *types.Header) {
	if header == nil {
		return
	}
	now := time.Now().UTC()
	h.latest.Store(header)
	h.receivedAt.Store(&now)
}

// Latest returns the cached header and when it was fetched.
func (h *HeadCache) Latest() (*types.Header, time.Time) {
	var at time.Time
	if t := h.receivedAt.Load(); t != nil {
		at = *t
	}
	return h.latest.Load(), at
}
