package chains

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// NodeInfo is what a node reports about itself.
type NodeInfo struct {
	URL           string `json:"url"`
	ChainIDHex    string `json:"chainIdHex"`
	ClientVersion string `json:"clientVersion,omitempty"`
	LatestBlock   uint64 `json:"latestBlock,omitempty"`
	// Matches is set when the node serves the expected network.
	Matches bool `json:"matches"`
}

var ErrChainMismatch = errors.New("node serves a different chain")

// Probe asks an RPC node for its chain id, client version and latest block. Only the chain id
// is required; the rest is best effort.
func Probe(ctx context.Context, rpcURL string, expect NetworkConfig) (NodeInfo, error) {
	out := NodeInfo{URL: strings.TrimSpace(rpcURL)}
	if out.URL == "" {
		return out, errors.New("missing rpc url")
	}
	u, err := url.Parse(out.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return out, errors.Newf("invalid rpc url %q", out.URL)
	}

	ctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()

	client, err := rpc.DialContext(ctx, out.URL)
	if err != nil {
		return out, errors.Wrap(err, "dial rpc")
	}
	defer client.Close()

	var chainID hexutil.Big
	if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		return out, errors.Wrap(err, "eth_chainId")
	}
	out.ChainIDHex = NormalizeChainIDHex(chainID.String())

	var version string
	if err := client.CallContext(ctx, &version, "web3_clientVersion"); err == nil {
		out.ClientVersion = strings.TrimSpace(version)
	}
	var block hexutil.Uint64
	if err := client.CallContext(ctx, &block, "eth_blockNumber"); err == nil {
		out.LatestBlock = uint64(block)
	}

	out.Matches = out.ChainIDHex == NormalizeChainIDHex(expect.ChainIDHex)
	if !out.Matches {
		return out, errors.Wrapf(ErrChainMismatch, "%s reports %s, %s is %s",
			out.URL, out.ChainIDHex, expect.Label(), expect.ChainIDHex)
	}
	return out, nil
}

// ProbeNetwork probes the RPC the service would use for networkName.
func (s *ChainService) ProbeNetwork(ctx context.Context, networkName string) (NodeInfo, error) {
	resolved, err := s.ResolveNetworkByName(networkName)
	if err != nil {
		return NodeInfo{}, err
	}
	network, err := s.cfg.Registry.ByName(networkName)
	if err != nil {
		return NodeInfo{}, err
	}
	return Probe(ctx, resolved.URL, network)
}
