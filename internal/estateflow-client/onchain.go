package estateflow_client

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/chains"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/contract"
)

// OnChainView reads the EstateFlow contract through a node of one network. Clients are
// dialed on first use.
type OnChainView struct {
	chains   *chains.ChainService
	contract *contract.Contract
	network  string
}

func NewOnChainView(cs *chains.ChainService, c *contract.Contract, network string) *OnChainView {
	return &OnChainView{chains: cs, contract: c, network: network}
}

func (v *OnChainView) reader(ctx context.Context) (*contract.Reader, error) {
	caller, err := v.chains.ContractCaller(ctx, v.network)
	if err != nil {
		return nil, err
	}
	return v.contract.Reader(caller), nil
}

func (v *OnChainView) GetRequest(ctx context.Context, id *big.Int) (contract.OnChainRequest, error) {
	r, err := v.reader(ctx)
	if err != nil {
		return contract.OnChainRequest{}, err
	}
	return r.GetRequest(ctx, id)
}

func (v *OnChainView) RequestsByCreator(ctx context.Context, creator common.Address) ([]contract.OnChainRequest, error) {
	r, err := v.reader(ctx)
	if err != nil {
		return nil, err
	}
	return r.RequestsByCreator(ctx, creator)
}

func (v *OnChainView) GetTotalRequests(ctx context.Context) (*big.Int, error) {
	r, err := v.reader(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetTotalRequests(ctx)
}

func (v *OnChainView) LatestHeader(ctx context.Context) (*types.Header, time.Time, error) {
	return v.chains.LatestHeader(ctx, v.network)
}

// Probe checks that the node behind this view serves the expected chain.
func (v *OnChainView) Probe(ctx context.Context) (chains.NodeInfo, error) {
	return v.chains.ProbeNetwork(ctx, v.network)
}
