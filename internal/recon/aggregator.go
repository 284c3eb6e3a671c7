package recon

import (
	"math"
	"sort"
	"time"

	"wallet-recon/internal/domain"
	"wallet-recon/internal/solana"
)

const lamportsPerSOL = 1_000_000_000

// Ranking truncation sizes for the finalized report.
const (
	topCounterpartyLimit = 8
	fundingEdgeLimit     = 10
	programLimit         = 10
	linkedWalletLimit    = 20
)

// Aggregator folds parsed transactions into running totals for one wallet
// report. One instance belongs to exactly one request; it is not safe for
// concurrent use and is never reused.
type Aggregator struct {
	wallet string

	signatureCount   int
	feeLamports      uint64
	inboundLamports  uint64
	outboundLamports uint64

	counterparties  map[string]int
	inboundBySource map[string]uint64
	outboundByDest  map[string]uint64
	linkedWallets   map[string]int
	programUsage    map[string]int
	activeDays      map[string]struct{}

	firstSeen *time.Time
	lastSeen  *time.Time
}

// NewAggregator creates an empty aggregation state for the given wallet.
func NewAggregator(wallet string) *Aggregator {
	return &Aggregator{
		wallet:          wallet,
		counterparties:  make(map[string]int),
		inboundBySource: make(map[string]uint64),
		outboundByDest:  make(map[string]uint64),
		linkedWallets:   make(map[string]int),
		programUsage:    make(map[string]int),
		activeDays:      make(map[string]struct{}),
	}
}

// Observe records signature metadata. Timestamps drive the active-day set
// and first/last seen even when the transaction body is unavailable.
func (a *Aggregator) Observe(sig solana.SignatureInfo) {
	a.signatureCount++
	if sig.BlockTime == nil || *sig.BlockTime == 0 {
		return
	}
	at := time.Unix(*sig.BlockTime, 0).UTC()
	a.activeDays[at.Format("2006-01-02")] = struct{}{}
	if a.firstSeen == nil || at.Before(*a.firstSeen) {
		t := at
		a.firstSeen = &t
	}
	if a.lastSeen == nil || at.After(*a.lastSeen) {
		t := at
		a.lastSeen = &t
	}
}

// Apply folds one parsed transaction into the running totals.
func (a *Aggregator) Apply(tx ParsedTransaction) {
	a.feeLamports += tx.FeeLamports

	for _, key := range tx.AccountKeys {
		if key != "" && key != a.wallet {
			a.linkedWallets[key]++
		}
	}

	for _, ix := range tx.Instructions {
		if ix.Program != "" {
			a.programUsage[ix.Program]++
		}
		tr := ix.Transfer
		if tr == nil {
			continue
		}
		switch {
		case tr.Source == a.wallet:
			a.outboundLamports += tr.Lamports
			if tr.Destination != "" {
				a.counterparties[tr.Destination]++
				a.outboundByDest[tr.Destination] += tr.Lamports
			}
		case tr.Destination == a.wallet:
			a.inboundLamports += tr.Lamports
			if tr.Source != "" {
				a.counterparties[tr.Source]++
				a.inboundBySource[tr.Source] += tr.Lamports
			}
		}
	}
}

// Candidates returns the union of linked wallets, program ids and transfer
// counterparties seen during the fold.
func (a *Aggregator) Candidates() map[string]struct{} {
	out := make(map[string]struct{}, len(a.linkedWallets)+len(a.programUsage)+len(a.counterparties))
	for k := range a.linkedWallets {
		out[k] = struct{}{}
	}
	for k := range a.programUsage {
		out[k] = struct{}{}
	}
	for k := range a.counterparties {
		out[k] = struct{}{}
	}
	return out
}

// Finalize converts the fold state into the two immutable output
// structures. Volume and net flow are derived from the already-rounded
// inbound/outbound values so the documented identities hold exactly.
func (a *Aggregator) Finalize() (*domain.WalletMetrics, *domain.WalletIntelligence) {
	inSOL := lamportsToSOL(a.inboundLamports)
	outSOL := lamportsToSOL(a.outboundLamports)

	top := make([]domain.CounterpartyStat, 0, topCounterpartyLimit)
	for _, e := range rankCounts(a.counterparties, topCounterpartyLimit) {
		top = append(top, domain.CounterpartyStat{Wallet: e.key, Transfers: e.count})
	}

	metrics := &domain.WalletMetrics{
		Wallet:            a.wallet,
		SignatureCount:    a.signatureCount,
		TotalFeesSOL:      lamportsToSOL(a.feeLamports),
		InboundSOL:        inSOL,
		OutboundSOL:       outSOL,
		TransferVolumeSOL: round6(inSOL + outSOL),
		NetFlowSOL:        round6(inSOL - outSOL),
		ActiveDays:        len(a.activeDays),
		TopCounterparties: top,
	}

	linked := make([]string, 0, linkedWalletLimit)
	for _, e := range rankCounts(a.linkedWallets, linkedWalletLimit) {
		linked = append(linked, e.key)
	}

	programs := make([]domain.ProgramUsage, 0, programLimit)
	for _, e := range rankCounts(a.programUsage, programLimit) {
		programs = append(programs, domain.ProgramUsage{Program: e.key, Interactions: e.count})
	}

	intel := &domain.WalletIntelligence{
		UniqueCounterparties: len(a.counterparties),
		LikelyFunders:        a.fundingEdges(a.inboundBySource),
		LikelyFundedWallets:  a.fundingEdges(a.outboundByDest),
		FrequentPrograms:     programs,
		LinkedWallets:        linked,
		KnownLabels:          []domain.KnownLabel{},
		InferredEntities:     []domain.InferredEntity{},
	}
	if a.firstSeen != nil {
		intel.FirstSeenAt = a.firstSeen.Format(time.RFC3339)
	}
	if a.lastSeen != nil {
		intel.LastSeenAt = a.lastSeen.Format(time.RFC3339)
	}

	return metrics, intel
}

// fundingEdges ranks a lamport tally by value, highest first, and attaches
// the transfer count observed for each counterparty.
func (a *Aggregator) fundingEdges(tally map[string]uint64) []domain.FundingEdge {
	edges := make([]domain.FundingEdge, 0, fundingEdgeLimit)
	for _, e := range rankLamports(tally, fundingEdgeLimit) {
		edges = append(edges, domain.FundingEdge{
			Wallet:    e.key,
			TotalSOL:  lamportsToSOL(e.lamports),
			Transfers: a.counterparties[e.key],
		})
	}
	return edges
}

type countEntry struct {
	key   string
	count int
}

// rankCounts sorts a tally by descending count, ties broken by ascending
// key for deterministic output, truncated to limit.
func rankCounts(m map[string]int, limit int) []countEntry {
	entries := make([]countEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, countEntry{key: k, count: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

type lamportEntry struct {
	key      string
	lamports uint64
}

// rankLamports sorts a lamport tally by descending value, ties broken by
// ascending key, truncated to limit.
func rankLamports(m map[string]uint64, limit int) []lamportEntry {
	entries := make([]lamportEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, lamportEntry{key: k, lamports: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].lamports != entries[j].lamports {
			return entries[i].lamports > entries[j].lamports
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// lamportsToSOL converts lamports to display-scale SOL rounded to 6
// fractional digits.
func lamportsToSOL(lamports uint64) float64 {
	return round6(float64(lamports) / lamportsPerSOL)
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
