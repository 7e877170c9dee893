package estateflow_client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateflow-io/estateflow-client/cmd/estateflow-client/config"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/chains"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/constants"
)

const walletAccount = "0x1111111111111111111111111111111111111111"

type walletService struct{}

func (walletService) ChainId() string    { return constants.DefaultChainIDHex }
func (walletService) Accounts() []string { return []string{walletAccount} }

func testConfig(t *testing.T, walletURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Wallet: &config.WalletSettings{URL: walletURL, DetectTimeout: "2s"},
		Store:  &config.StoreSettings{Driver: config.StoreMemory},
		Networks: chains.AllChainsConfig{
			Networks: map[string]chains.NetworkConfig{
				"sepolia": {
					ChainIDHex: constants.DefaultChainIDHex,
					RPCs:       []chains.RPC{{Name: "public", URL: "http://127.0.0.1:1"}},
				},
			},
		},
	}
	require.NoError(t, cfg.Normalize())
	return cfg
}

func TestNewApp_NoWallet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, testConfig(t, ""))
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Start(ctx))

	s := app.Tracker.Snapshot()
	assert.False(t, s.IsInstalled)
	assert.False(t, s.IsConnected)
	assert.Equal(t, "sepolia", app.Network.Name)
	assert.NotNil(t, app.OnChain)
	assert.Equal(t, "memory", app.Store.Backend().Name())

	err = app.Tracker.Connect(ctx)
	require.Error(t, err)
	assert.Equal(t, constants.SessionNotDetectedText, err.Error())
}

func TestNewApp_DetectsHTTPWallet(t *testing.T) {
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", walletService{}))
	ts := httptest.NewServer(srv)
	defer ts.Close()
	defer srv.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, testConfig(t, ts.URL))
	require.NoError(t, err)
	defer app.Close()
	require.NoError(t, app.Start(ctx))

	s := app.Tracker.Snapshot()
	assert.True(t, s.IsInstalled)
	assert.True(t, s.IsConnected)
	assert.Equal(t, walletAccount, s.Account)

	require.NoError(t, app.Guarantor.Ensure(ctx, app.Tracker.Provider()))
}

func TestNewApp_ServesAPI(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, testConfig(t, ""))
	require.NoError(t, err)
	defer app.Close()
	require.NoError(t, app.Start(ctx))

	handler, err := app.Server()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/requests/stats", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":7`)
}

func TestNewApp_UnknownNetwork(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.EstateFlow.Network = "holesky"
	_, err := NewApp(context.Background(), cfg)
	assert.ErrorIs(t, err, chains.ErrUnknownNetwork)
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Store.Driver = config.StoreRedis
	cfg.Store.RedisURL = "not a url"
	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}
