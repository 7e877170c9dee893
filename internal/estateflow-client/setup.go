package estateflow_client

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/estateflow-io/estateflow-client/cmd/estateflow-client/config"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/chains"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/contract"
	clienthttp "github.com/estateflow-io/estateflow-client/internal/estateflow-client/http"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/provider"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/requests"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/session"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/submit"
)

type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// App holds the wired client. Commands use it directly; Run serves it over HTTP.
type App struct {
	Config    *config.Config
	Network   chains.NetworkConfig
	Tracker   *session.Tracker
	Guarantor *chains.Guarantor
	Contract  *contract.Contract
	Submitter *submit.Submitter
	Store     *requests.Store
	Chains    *chains.ChainService
	// OnChain is nil when the configured network has no RPC endpoint.
	OnChain *OnChainView

	wallet  *provider.Client
	closers []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	registry, err := chains.NewRegistry(&cfg.Networks)
	if err != nil {
		return nil, err
	}
	network, err := registry.ByName(cfg.EstateFlow.Network)
	if err != nil {
		return nil, err
	}

	c, err := contract.New(common.HexToAddress(cfg.EstateFlow.ContractAddress))
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Network:   network,
		Guarantor: chains.NewGuarantor(network),
		Contract:  c,
	}

	setupOK := false
	defer func() {
		if !setupOK {
			_ = a.Close()
		}
	}()

	backend, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = requests.NewStore(backend)

	a.Tracker = session.NewTracker(a.detect)
	a.Submitter = submit.New(a.Tracker, a.Guarantor, c, a.Store, submit.Config{
		PollInterval: cfg.ReceiptPollInterval(),
		TotalProofs:  cfg.EstateFlow.TotalProofs,
	})
	a.Tracker.OnChainChanged(func(_ context.Context, chainID string) {
		log.Info("resetting submission state after chain change", "chainId", chainID)
		a.Submitter.Reset()
	})

	a.Chains, err = chains.NewChainService(ctx, chains.ChainConfig{
		Registry:         registry,
		PreferredRPCName: cfg.Networks.ActiveRPC,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Chains.Close)
	if len(network.RPCs) > 0 {
		a.OnChain = NewOnChainView(a.Chains, c, network.Name)
	}

	setupOK = true
	return a, nil
}

func (a *App) openBackend(ctx context.Context) (requests.Backend, error) {
	st := a.Config.Store
	switch st.Driver {
	case config.StoreMemory:
		return requests.NewMemoryBackend(), nil
	case config.StoreRedis:
		client, err := requests.DialRedis(ctx, st.RedisURL)
		if err != nil {
			return nil, err
		}
		rb := requests.NewRedisBackend(client, st.Key)
		a.closers = append(a.closers, rb.Close)
		return rb, nil
	default:
		path, err := a.Config.RequestsPath()
		if err != nil {
			return nil, err
		}
		return requests.NewFileBackend(path), nil
	}
}

// detect is the tracker's Detector. The dialed client is kept so Start can listen on it.
func (a *App) detect(ctx context.Context) (provider.Provider, error) {
	c, err := provider.Detect(ctx, a.Config.Wallet.URL, a.Config.DetectTimeout())
	if err != nil {
		return nil, err
	}
	a.wallet = c
	a.closers = append(a.closers, func() error { c.Close(); return nil })
	return c, nil
}

// Init loads the request cache and detects the wallet, without starting listeners.
func (a *App) Init(ctx context.Context) error {
	if err := a.Store.Load(ctx); err != nil {
		return errors.Wrap(err, "load request cache")
	}
	return a.Tracker.Init(ctx)
}

// Start runs Init and then follows wallet notifications until ctx ends.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	follow := a.Tracker.Follow()
	go func() {
		if err := follow(ctx); err != nil {
			log.Error("session tracker stopped", "error", err)
		}
	}()

	if a.wallet == nil {
		log.Warn("wallet not detected", "url", a.Config.Wallet.URL)
		return nil
	}
	go func() {
		err := a.wallet.Listen(ctx)
		switch {
		case errors.Is(err, provider.ErrEventsUnsupported):
			log.Warn("wallet transport has no notifications; session follows explicit calls only", "url", a.wallet.URL())
		case err != nil:
			log.Error("wallet listener stopped", "error", err)
		}
	}()
	return nil
}

func (a *App) Server() (*clienthttp.Server, error) {
	deps := clienthttp.Deps{
		Session:   a.Tracker,
		Network:   a.Guarantor,
		Submitter: a.Submitter,
		Requests:  a.Store,
	}
	if a.OnChain != nil {
		deps.OnChain = a.OnChain
	}
	cs := a.Config.ClientSettings
	return clienthttp.NewServer(deps, clienthttp.Config{
		Host:           cs.LocalHost,
		Port:           cs.Port,
		AllowedOrigins: cs.AllowedOrigins,
		LoopbackOnly:   cs.LoopbackOnly,
	})
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	a.closers = nil
	return errs
}

// Run serves the loopback API until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, build BuildInfo) error {
	log.Info("estateflow-client",
		"version", build.Version,
		"commit", build.Commit,
		"build_date", build.BuildDate,
	)

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			log.Error("estateflow client close failed", "error", closeErr)
		}
	}()

	if err := app.Start(ctx); err != nil {
		return err
	}

	srv, err := app.Server()
	if err != nil {
		return err
	}
	log.Info("estateflow client ready",
		"network", app.Network.Name,
		"contract", app.Contract.Address().Hex(),
		"store", app.Store.Backend().Name(),
		"wallet", app.Tracker.Snapshot().IsInstalled,
	)
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	log.Info("estateflow client gracefully stopped")
	return nil
}
