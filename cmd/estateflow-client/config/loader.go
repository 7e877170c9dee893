package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	utilsconfig "github.com/quantumauth-io/quantum-go-utils/config"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/chains"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/constants"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/securefile"
)

const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"

	envPrefix = "ESTATEFLOW_"
)

type ClientSettings struct {
	LocalHost      string
	Port           string
	LoopbackOnly   bool
	AllowedOrigins []string
}

type WalletSettings struct {
	URL           string
	DetectTimeout string
}

type EstateFlowSettings struct {
	Network             string
	ContractAddress     string
	ReceiptPollInterval string
	TotalProofs         int
}

type StoreSettings struct {
	Driver   string
	Path     string
	RedisURL string
	Key      string
}

type Config struct {
	ClientSettings *ClientSettings
	Wallet         *WalletSettings
	EstateFlow     *EstateFlowSettings
	Store          *StoreSettings
	Networks       chains.AllChainsConfig `mapstructure:"Networks"`
}

func Load() (*Config, error) {
	home, _ := os.UserHomeDir()
	envFolder, err := securefile.EnvFolder()
	if err != nil {
		return nil, err
	}
	paths := []string{
		filepath.Join(home, ".config", constants.AppName, envFolder),
		filepath.Join(home, "config"),
		".",
	}

	cfg, err := utilsconfig.ParseConfigWithEmbedded[Config](paths, EmbeddedConfigYAML)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides single settings from ESTATEFLOW_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.ensureSections()

	set := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}
	set("HOST", &c.ClientSettings.LocalHost)
	set("PORT", &c.ClientSettings.Port)
	set("WALLET_URL", &c.Wallet.URL)
	set("NETWORK", &c.EstateFlow.Network)
	set("CONTRACT_ADDRESS", &c.EstateFlow.ContractAddress)
	set("STORE_DRIVER", &c.Store.Driver)
	set("STORE_PATH", &c.Store.Path)
	set("REDIS_URL", &c.Store.RedisURL)

	if v := strings.TrimSpace(getenv(envPrefix + "LOOPBACK_ONLY")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ClientSettings.LoopbackOnly = b
		}
	}
}

func (c *Config) ensureSections() {
	if c.ClientSettings == nil {
		c.ClientSettings = &ClientSettings{}
	}
	if c.Wallet == nil {
		c.Wallet = &WalletSettings{}
	}
	if c.EstateFlow == nil {
		c.EstateFlow = &EstateFlowSettings{}
	}
	if c.Store == nil {
		c.Store = &StoreSettings{}
	}
}

// Normalize fills defaults and rejects values the client cannot run with.
func (c *Config) Normalize() error {
	c.ensureSections()

	if c.ClientSettings.LocalHost == "" {
		c.ClientSettings.LocalHost = "127.0.0.1"
	}
	if c.ClientSettings.Port == "" {
		c.ClientSettings.Port = "6137"
	}

	ef := c.EstateFlow
	ef.Network = strings.ToLower(strings.TrimSpace(ef.Network))
	if ef.Network == "" {
		ef.Network = constants.DefaultNetwork
	}
	if ef.ContractAddress == "" {
		ef.ContractAddress = constants.DefaultContractAddress
	}
	if !common.IsHexAddress(ef.ContractAddress) {
		return errors.Newf("invalid EstateFlow.ContractAddress %q", ef.ContractAddress)
	}
	if ef.TotalProofs <= 0 {
		ef.TotalProofs = constants.DefaultTotalProofs
	}
	if _, err := parseDuration(ef.ReceiptPollInterval, constants.DefaultReceiptPollInterval); err != nil {
		return errors.Wrap(err, "EstateFlow.ReceiptPollInterval")
	}
	if _, err := parseDuration(c.Wallet.DetectTimeout, constants.DefaultDetectTimeout); err != nil {
		return errors.Wrap(err, "Wallet.DetectTimeout")
	}

	st := c.Store
	st.Driver = strings.ToLower(strings.TrimSpace(st.Driver))
	switch st.Driver {
	case "":
		st.Driver = StoreFile
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return errors.Newf("invalid Store.Driver %q (allowed: file, redis, memory)", st.Driver)
	}
	if st.Key == "" {
		st.Key = constants.StorageKey
	}
	if st.Driver == StoreRedis && st.RedisURL == "" {
		return errors.New("Store.RedisURL is required for the redis driver")
	}

	if c.Networks.ActiveNetwork == "" {
		c.Networks.ActiveNetwork = ef.Network
	}
	return nil
}

func (c *Config) ReceiptPollInterval() time.Duration {
	d, _ := parseDuration(c.EstateFlow.ReceiptPollInterval, constants.DefaultReceiptPollInterval)
	return d
}

func (c *Config) DetectTimeout() time.Duration {
	d, _ := parseDuration(c.Wallet.DetectTimeout, constants.DefaultDetectTimeout)
	return d
}

// RequestsPath is Store.Path, or the per-user default under ~/.config/estateflow.
func (c *Config) RequestsPath() (string, error) {
	if p := strings.TrimSpace(c.Store.Path); p != "" {
		return p, nil
	}
	return securefile.ResolvePath(constants.AppName, constants.RequestsFile)
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def, err
	}
	if d <= 0 {
		return def, errors.Newf("duration must be positive, got %s", s)
	}
	return d, nil
}
