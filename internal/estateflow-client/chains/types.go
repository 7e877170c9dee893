package chains

type AllChainsConfig struct {
	Networks      map[string]NetworkConfig `json:"networks" yaml:"networks" mapstructure:"networks"`
	ActiveNetwork string                   `json:"activeNetwork" yaml:"activeNetwork" mapstructure:"activeNetwork"`
	ActiveRPC     string                   `json:"activeRPC" yaml:"activeRPC" mapstructure:"activeRPC"`
}

// NetworkConfig describes a network, its RPC endpoints and the metadata a wallet needs to add it.
type NetworkConfig struct {
	Name           string         `json:"name" yaml:"name" mapstructure:"name"`
	DisplayName    string         `json:"displayName" yaml:"displayName" mapstructure:"displayName"`
	ChainName      string         `json:"chainName" yaml:"chainName" mapstructure:"chainName"`
	ChainID        uint64         `json:"chainId" yaml:"chainId" mapstructure:"chainId"`
	ChainIDHex     string         `json:"chainIdHex" yaml:"chainIdHex" mapstructure:"chainIdHex"`
	NativeCurrency NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency" mapstructure:"nativeCurrency"`
	RPCs           []RPC          `json:"rpcs" yaml:"rpcs" mapstructure:"rpcs"`
	Explorer       string         `json:"explorer" yaml:"explorer" mapstructure:"explorer"`
}

type NativeCurrency struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Symbol   string `json:"symbol" yaml:"symbol" mapstructure:"symbol"`
	Decimals int    `json:"decimals" yaml:"decimals" mapstructure:"decimals"`
}

type RPC struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
	WSS  string `json:"wss" yaml:"wss" mapstructure:"wss"`
}

// AddChainParams is the wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

type ResolvedChain struct {
	NetworkName string
	ChainID     uint64
	ChainIDHex  string
	Explorer    string

	RPCName string
	URL     string
	WSS     string
}
