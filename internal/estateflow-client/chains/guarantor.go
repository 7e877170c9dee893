package chains

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/constants"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/metrics"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/provider"
)

// Guarantor makes sure the wallet is on the expected network before a contract call.
type Guarantor struct {
	network NetworkConfig
}

func NewGuarantor(network NetworkConfig) *Guarantor {
	return &Guarantor{network: network}
}

func (g *Guarantor) Network() NetworkConfig { return g.network }

// Ensure returns nil once the wallet reports the expected chain. The returned error text is
// meant for the user; causes are logged.
func (g *Guarantor) Ensure(ctx context.Context, p provider.Provider) error {
	if p == nil {
		metrics.NetworkEnsure.WithLabelValues(metrics.ActionCheck, metrics.OutcomeSkipped).Inc()
		return errors.New(constants.SessionWalletNotDetectedTxt)
	}

	raw, err := p.Request(ctx, provider.MethodChainID)
	var current string
	if err == nil {
		current, err = provider.DecodeString(raw)
	}
	if err != nil {
		log.Error("network check failed", "error", err)
		metrics.NetworkEnsure.WithLabelValues(metrics.ActionCheck, metrics.OutcomeFailed).Inc()
		return errors.New(constants.NetworkCheckFailedText)
	}

	want := g.network.ChainIDHex
	if NormalizeChainIDHex(current) == NormalizeChainIDHex(want) {
		metrics.NetworkEnsure.WithLabelValues(metrics.ActionNone, metrics.OutcomeSuccess).Inc()
		return nil
	}

	log.Info("switching wallet network", "from", current, "to", want)
	_, err = p.Request(ctx, provider.MethodSwitchChain, SwitchChainParams{ChainID: want})
	if err == nil {
		metrics.NetworkEnsure.WithLabelValues(metrics.ActionSwitch, metrics.OutcomeSuccess).Inc()
		return nil
	}

	if !provider.IsCode(err, provider.CodeUnrecognizedChain) {
		log.Error("network switch failed", "network", g.network.Name, "error", err)
		metrics.NetworkEnsure.WithLabelValues(metrics.ActionSwitch, metrics.OutcomeFailed).Inc()
		return errors.New(fmt.Sprintf(constants.NetworkSwitchFailedText, g.network.Label()))
	}

	if _, err := p.Request(ctx, provider.MethodAddChain, g.network.AddChainParams()); err != nil {
		log.Error("adding network to wallet failed", "network", g.network.Name, "error", err)
		metrics.NetworkEnsure.WithLabelValues(metrics.ActionAdd, metrics.OutcomeFailed).Inc()
		return errors.New(fmt.Sprintf(constants.NetworkAddFailedText, g.network.Label()))
	}
	metrics.NetworkEnsure.WithLabelValues(metrics.ActionAdd, metrics.OutcomeSuccess).Inc()
	return nil
}
