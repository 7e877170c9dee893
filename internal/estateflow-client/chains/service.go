package chains

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/qa_evm"
)

type ChainConfig struct {
	Registry         *Registry
	PreferredRPCName string
	HeadRefresh      time.Duration
}

// ChainClients holds a network's node connections. WS is optional and only feeds the
// head cache.
type ChainClients struct {
	WS   *ethclient.Client
	HTTP qa_evm.BlockchainClient

	headMu sync.Mutex
	head   *HeadCache
}

// ChainService hands out cached node clients for configured networks. It never talks to
// the wallet.
type ChainService struct {
	cfg ChainConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu               sync.Mutex
	clientsByNetwork map[string]*ChainClients
}

func NewChainService(ctx context.Context, cfg ChainConfig) (*ChainService, error) {
	if cfg.Registry == nil {
		return nil, errors.New("network registry is nil")
	}
	if cfg.HeadRefresh <= 0 {
		cfg.HeadRefresh = 12 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	return &ChainService{
		cfg:              cfg,
		ctx:              ctx,
		cancel:           cancel,
		clientsByNetwork: make(map[string]*ChainClients),
	}, nil
}

func (s *ChainService) Registry() *Registry { return s.cfg.Registry }

// ClientsForNetwork returns (and caches) clients for a network.
func (s *ChainService) ClientsForNetwork(ctx context.Context, networkName string) (*ChainClients, error) {
	cacheKey := normalizeNetworkKey(networkName)
	if cacheKey == "" {
		return nil, errors.New("network name is empty")
	}

	s.mu.Lock()
	if existing := s.clientsByNetwork[cacheKey]; existing != nil {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	resolved, err := s.ResolveNetworkByName(networkName)
	if err != nil {
		return nil, err
	}

	// dial outside the lock
	dialed, err := dialChainClients(ctx, resolved)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing := s.clientsByNetwork[cacheKey]; existing != nil {
		s.mu.Unlock()
		safeCloseClients(dialed)
		return existing, nil
	}
	s.clientsByNetwork[cacheKey] = dialed
	s.mu.Unlock()

	return dialed, nil
}

// ContractCaller returns the network's http client as a view-call backend.
func (s *ChainService) ContractCaller(ctx context.Context, networkName string) (bind.ContractCaller, error) {
	clients, err := s.ClientsForNetwork(ctx, networkName)
	if err != nil {
		return nil, err
	}
	caller, ok := clients.HTTP.(bind.ContractCaller)
	if !ok {
		return nil, errors.Newf("http client for %s cannot call contracts (got %T)", networkName, clients.HTTP)
	}
	return caller, nil
}

// LatestHeader serves the network head from a background-refreshed cache.
func (s *ChainService) LatestHeader(ctx context.Context, networkName string) (*types.Header, time.Time, error) {
	clients, err := s.ClientsForNetwork(ctx, networkName)
	if err != nil {
		return nil, time.Time{}, err
	}

	clients.headMu.Lock()
	defer clients.headMu.Unlock()
	if clients.head == nil {
		var subscriber HeadSubscriber
		if clients.WS != nil {
			subscriber = clients.WS
		}
		created, err := NewHeadCache(s.ctx, clients.HTTP, subscriber, s.cfg.HeadRefresh)
		if err != nil {
			return nil, time.Time{}, err
		}
		clients.head = created
	}

	header, at := clients.head.Latest()
	return header, at, nil
}

// Close stops head refreshes and closes all cached clients.
func (s *ChainService) Close() error {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, clients := range s.clientsByNetwork {
		safeCloseClients(clients)
		delete(s.clientsByNetwork, key)
	}
	return nil
}

func dialChainClients(ctx context.Context, chain ResolvedChain) (*ChainClients, error) {
	if strings.TrimSpace(chain.URL) == "" {
		return nil, errors.Newf("network %q has no rpc url", chain.NetworkName)
	}

	httpClient, err := ethclient.DialContext(ctx, chain.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial http %q", chain.NetworkName)
	}

	out := &ChainClients{HTTP: httpClient}
	if strings.TrimSpace(chain.WSS) != "" {
		wsClient, err := ethclient.DialContext(ctx, chain.WSS)
		if err != nil {
			log.Warn("websocket rpc unavailable; head cache will poll", "network", chain.NetworkName, "error", err)
		} else {
			out.WS = wsClient
		}
	}
	return out, nil
}

func safeCloseClients(c *ChainClients) {
	if c == nil {
		return
	}
	if c.WS != nil {
		c.WS.Close()
	}
	if c.HTTP != nil {
		if closer, ok := c.HTTP.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func (s *ChainService) ResolveNetworkByChainIDHex(chainIDHex string) (ResolvedChain, error) {
	network, err := s.cfg.Registry.ByChainIDHex(chainIDHex)
	if err != nil {
		return ResolvedChain{}, err
	}
	return s.resolveFromNetworkConfig(network)
}

func (s *ChainService) ResolveNetworkByName(networkName string) (ResolvedChain, error) {
	network, err := s.cfg.Registry.ByName(networkName)
	if err != nil {
		return ResolvedChain{}, err
	}
	return s.resolveFromNetworkConfig(network)
}

func (s *ChainService) resolveFromNetworkConfig(network NetworkConfig) (ResolvedChain, error) {
	var selected *RPC
	if preferred := strings.TrimSpace(s.cfg.PreferredRPCName); preferred != "" {
		for i := range network.RPCs {
			if strings.EqualFold(network.RPCs[i].Name, preferred) {
				selected = &network.RPCs[i]
				break
			}
		}
	}
	if selected == nil {
		if len(network.RPCs) == 0 {
			return ResolvedChain{}, errors.Newf("network %q has no RPCs configured", network.Name)
		}
		selected = &network.RPCs[0]
	}

	return ResolvedChain{
		NetworkName: network.Name,
		ChainID:     network.ChainID,
		ChainIDHex:  network.ChainIDHex,
		Explorer:    network.Explorer,
		RPCName:     selected.Name,
		URL:         selected.URL,
		WSS:         selected.WSS,
	}, nil
}
