package recon

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wallet-recon/internal/domain"
	"wallet-recon/internal/solana"
)

// Collector runs the full wallet aggregation sequence for one request:
// list signatures, fetch transaction records in batches, fold, classify.
type Collector struct {
	rpc    solana.RPC
	labels LabelTable
	logger *zap.Logger
}

// NewCollector creates a collector over the given RPC client and label
// table. A nil table falls back to the built-in one.
func NewCollector(rpc solana.RPC, labels LabelTable, logger *zap.Logger) *Collector {
	if labels == nil {
		labels = DefaultLabelTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{rpc: rpc, labels: labels, logger: logger}
}

// CollectWalletReport reconstructs the wallet's bounded transaction history
// and derives its metrics and intelligence structures. The aggregation
// state lives entirely within this call.
func (c *Collector) CollectWalletReport(ctx context.Context, wallet string, maxSignatures int) (*domain.WalletMetrics, *domain.WalletIntelligence, error) {
	sigs, err := c.rpc.GetSignaturesForAddress(ctx, wallet, maxSignatures)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		if sig.Signature != "" {
			ids = append(ids, sig.Signature)
		}
	}

	txs, err := c.rpc.GetTransactions(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	agg := NewAggregator(wallet)
	for _, sig := range sigs {
		agg.Observe(sig)
		if sig.Signature == "" {
			continue
		}
		tx := txs[sig.Signature]
		if tx == nil {
			// Pruned or unavailable; counted in signature totals only.
			continue
		}
		agg.Apply(ParseTransaction(tx))
	}

	metrics, intel := agg.Finalize()
	intel.KnownLabels, intel.InferredEntities = Classify(agg.Candidates(), c.labels)

	if err := validateMetrics(metrics); err != nil {
		return nil, nil, err
	}

	c.logger.Debug("wallet report collected",
		zap.String("wallet", wallet),
		zap.Int("signatures", metrics.SignatureCount),
		zap.Float64("transfer_volume_sol", metrics.TransferVolumeSOL),
		zap.Int("counterparties", intel.UniqueCounterparties))

	return metrics, intel, nil
}

// validateMetrics checks the output identities before the structures leave
// the engine. A violation means the fold is corrupted and must fail loudly
// rather than ship a silently wrong aggregate.
func validateMetrics(m *domain.WalletMetrics) error {
	if m.Wallet == "" {
		return fmt.Errorf("invalid metrics: empty wallet")
	}
	if m.SignatureCount < 0 || m.ActiveDays < 0 {
		return fmt.Errorf("invalid metrics: negative counts")
	}
	if got := round6(m.InboundSOL + m.OutboundSOL); got != m.TransferVolumeSOL {
		return fmt.Errorf("invalid metrics: transfer volume %v != inbound+outbound %v", m.TransferVolumeSOL, got)
	}
	if got := round6(m.InboundSOL - m.OutboundSOL); got != m.NetFlowSOL {
		return fmt.Errorf("invalid metrics: net flow %v != inbound-outbound %v", m.NetFlowSOL, got)
	}
	return nil
}
