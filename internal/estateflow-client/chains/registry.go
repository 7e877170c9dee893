package chains

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var chainDefaults = map[string]struct {
	Name     string
	Display  string
	Explorer string
}{
	"0x1":      {"mainnet", "Ethereum", "https://etherscan.io"},
	"0xaa36a7": {"sepolia", "Sepolia", "https://sepolia.etherscan.io"},
	"0x4268":   {"holesky", "Holesky", "https://holesky.etherscan.io"},
	"0xa4b1":   {"arbitrum", "Arbitrum", "https://arbiscan.io"},
	"0x66eee":  {"arbitrum-sepolia", "Arbitrum Sepolia", "https://sepolia.arbiscan.io"},
	"0xa":      {"optimism", "Optimism", "https://optimistic.etherscan.io"},
	"0x2105":   {"base", "Base", "https://basescan.org"},
	"0x14a34":  {"base-sepolia", "Base Sepolia", "https://sepolia.basescan.org"},
	"0x89":     {"polygon", "Polygon", "https://polygonscan.com"},
}

var ErrUnknownNetwork = errors.New("unknown network")

// Registry is the normalized set of configured networks.
type Registry struct {
	networks map[string]NetworkConfig
}

func NewRegistry(cfg *AllChainsConfig) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("chains config is nil")
	}

	r := &Registry{networks: make(map[string]NetworkConfig, len(cfg.Networks))}
	for key, n := range cfg.Networks {
		if strings.TrimSpace(n.Name) == "" {
			n.Name = key
		}
		normalized, err := normalizeNetworkConfig(n)
		if err != nil {
			return nil, errors.Wrapf(err, "network %q", key)
		}
		if other, ok := r.findByChainIDHex(normalized.ChainIDHex); ok {
			return nil, errors.Newf("networks %q and %q share chain id %s", other.Name, normalized.Name, normalized.ChainIDHex)
		}
		r.networks[normalized.Name] = normalized
	}
	return r, nil
}

func (r *Registry) ByName(name string) (NetworkConfig, error) {
	n, ok := r.networks[normalizeNetworkKey(name)]
	if !ok {
		return NetworkConfig{}, errors.Wrapf(ErrUnknownNetwork, "%q", name)
	}
	return n, nil
}

func (r *Registry) ByChainIDHex(chainIDHex string) (NetworkConfig, error) {
	n, ok := r.findByChainIDHex(chainIDHex)
	if !ok {
		return NetworkConfig{}, errors.Wrapf(ErrUnknownNetwork, "chain id %q", chainIDHex)
	}
	return n, nil
}

func (r *Registry) findByChainIDHex(chainIDHex string) (NetworkConfig, bool) {
	want := NormalizeChainIDHex(chainIDHex)
	if want == "" {
		return NetworkConfig{}, false
	}
	for _, n := range r.networks {
		if n.ChainIDHex == want {
			return n, true
		}
	}
	return NetworkConfig{}, false
}

func (r *Registry) List() []NetworkConfig {
	out := make([]NetworkConfig, 0, len(r.networks))
	for _, n := range r.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Label is the short human name used in user-facing messages.
func (n NetworkConfig) Label() string {
	if n.DisplayName != "" {
		return n.DisplayName
	}
	if n.Name == "" {
		return n.ChainIDHex
	}
	return strings.ToUpper(n.Name[:1]) + n.Name[1:]
}

func (n NetworkConfig) TxURL(hash string) string {
	if n.Explorer == "" || hash == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/tx/" + hash
}

func (n NetworkConfig) AddChainParams() AddChainParams {
	p := AddChainParams{
		ChainID:        n.ChainIDHex,
		ChainName:      n.ChainName,
		NativeCurrency: n.NativeCurrency,
		RPCURLs:        make([]string, 0, len(n.RPCs)),
	}
	if p.ChainName == "" {
		p.ChainName = n.Label()
	}
	for _, rpc := range n.RPCs {
		p.RPCURLs = append(p.RPCURLs, rpc.URL)
	}
	if n.Explorer != "" {
		p.BlockExplorerURLs = []string{strings.TrimRight(n.Explorer, "/") + "/"}
	}
	return p
}

// NormalizeChainIDHex lower-cases a hex chain id and strips leading zeros, so "0xAA36A7" and
// "aa36a7" compare equal. Decimal ids are not accepted.
func NormalizeChainIDHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return ""
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return ""
	}
	return "0x" + v.Text(16)
}

func normalizeNetworkKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeRPCs(in []RPC) []RPC {
	out := make([]RPC, 0, len(in))
	seen := map[string]struct{}{}
	for _, r := range in {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			continue
		}
		key := strings.ToLower(url)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, RPC{
			Name: strings.TrimSpace(r.Name),
			URL:  url,
			WSS:  strings.TrimSpace(r.WSS),
		})
	}
	return out
}

func normalizeNetworkConfig(n NetworkConfig) (NetworkConfig, error) {
	n.Name = normalizeNetworkKey(n.Name)
	n.ChainIDHex = NormalizeChainIDHex(n.ChainIDHex)
	if n.ChainIDHex == "" && n.ChainID != 0 {
		n.ChainIDHex = "0x" + strconv.FormatUint(n.ChainID, 16)
	}
	if n.ChainID == 0 && n.ChainIDHex != "" {
		if v, err := strconv.ParseUint(strings.TrimPrefix(n.ChainIDHex, "0x"), 16, 64); err == nil {
			n.ChainID = v
		}
	}
	n.Explorer = strings.TrimSpace(n.Explorer)
	n.RPCs = normalizeRPCs(n.RPCs)

	if n.ChainIDHex == "" {
		return NetworkConfig{}, errors.New("network.chainIdHex is required")
	}

	if d, ok := chainDefaults[n.ChainIDHex]; ok {
		if n.Name == "" {
			n.Name = d.Name
		}
		if n.DisplayName == "" {
			n.DisplayName = d.Display
		}
		if n.Explorer == "" {
			n.Explorer = d.Explorer
		}
	}
	if n.Name == "" {
		return NetworkConfig{}, errors.New("network.name is required")
	}
	if n.NativeCurrency.Symbol == "" {
		n.NativeCurrency = NativeCurrency{Name: "Ethereum", Symbol: "ETH", Decimals: 18}
	}
	return n, nil
}
