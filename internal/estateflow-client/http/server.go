// Package http serves the loopback API a browser front-end uses to drive the wallet session,
// submit requests and read the local cache.
package http

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/chains"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/contract"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/provider"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/requests"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/session"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/submit"
)

type Session interface {
	Snapshot() session.Session
	Connect(ctx context.Context) error
	Disconnect()
	ClearError()
	Role() session.Role
	SetRole(r session.Role) error
	Provider() provider.Provider
	Subscribe(ch chan<- session.Session) event.Subscription
}

type Network interface {
	Ensure(ctx context.Context, p provider.Provider) error
	Network() chains.NetworkConfig
}

type Submitter interface {
	Submit(ctx context.Context, form submit.FormData) (*submit.Result, error)
	State() submit.State
}

type RequestStore interface {
	List(ctx context.Context) ([]requests.Request, error)
	ByStatus(ctx context.Context, status requests.Status) ([]requests.Request, error)
	Get(ctx context.Context, id string) (requests.Request, error)
	Update(ctx context.Context, id string, p requests.Patch) (requests.Request, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (requests.Stats, error)
	Reset(ctx context.Context) error
	Clear(ctx context.Context) error
	Refresh(ctx context.Context) error
	Inspect(ctx context.Context) (requests.Inspection, error)
}

// OnChain is the read-only contract view. It may be nil when no RPC endpoint is configured.
type OnChain interface {
	GetRequest(ctx context.Context, id *big.Int) (contract.OnChainRequest, error)
	RequestsByCreator(ctx context.Context, creator common.Address) ([]contract.OnChainRequest, error)
	GetTotalRequests(ctx context.Context) (*big.Int, error)
	LatestHeader(ctx context.Context) (*types.Header, time.Time, error)
	Probe(ctx context.Context) (chains.NodeInfo, error)
}

type Deps struct {
	Session   Session
	Network   Network
	Submitter Submitter
	Requests  RequestStore
	OnChain   OnChain
}

type Config struct {
	Host           string
	Port           string
	AllowedOrigins []string
	// LoopbackOnly rejects requests whose remote address is not 127.0.0.1 or ::1.
	LoopbackOnly bool
}

type Server struct {
	session   Session
	network   Network
	submitter Submitter
	requests  RequestStore
	onChain   OnChain

	cfg    Config
	engine *gin.Engine

	// work outlives single requests; it ends when the server shuts down.
	work     context.Context
	stopWork context.CancelFunc
}

func NewServer(deps Deps, cfg Config) (*Server, error) {
	if deps.Session == nil || deps.Network == nil || deps.Submitter == nil || deps.Requests == nil {
		return nil, errors.New("http server needs session, network, submitter and request store")
	}
	s := &Server{
		session:   deps.Session,
		network:   deps.Network,
		submitter: deps.Submitter,
		requests:  deps.Requests,
		onChain:   deps.OnChain,
		cfg:       cfg,
	}
	s.work, s.stopWork = context.WithCancel(context.Background())
	s.engine = s.newRouter()
	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) Addr() string {
	host := s.cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := s.cfg.Port
	if port == "" {
		port = "6137"
	}
	return host + ":" + port
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("estateflow client listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		log.Info("shutting down http server")
		s.stopWork()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http shutdown")
		}
		return nil
	}
}
