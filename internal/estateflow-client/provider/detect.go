package provider

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Detect dials the wallet and probes it with eth_chainId, which never prompts the user.
// Any failure is reported as ErrNotDetected.
func Detect(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c, err := Dial(ctx, url)
	if err != nil {
		if errors.Is(err, ErrNotDetected) {
			return nil, err
		}
		log.Warn("wallet dial failed", "url", url, "error", err)
		return nil, errors.Mark(err, ErrNotDetected)
	}

	raw, err := c.Request(ctx, MethodChainID)
	if err == nil && IsNull(raw) {
		err = errors.New("empty chain id")
	}
	if err != nil {
		c.Close()
		log.Warn("wallet probe failed", "url", url, "error", err)
		return nil, errors.Mark(errors.Wrap(err, "probe wallet"), ErrNotDetected)
	}
	return c, nil
}
