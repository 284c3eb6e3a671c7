package recon

import (
	"sort"
	"strings"

	"wallet-recon/internal/domain"
)

// LabelInfo is the display label and category for a known address.
type LabelInfo struct {
	Label    string
	Category string
}

// LabelTable maps known addresses to labels. Tables are built once,
// injected, and never mutated, so concurrent reads are safe.
type LabelTable map[string]LabelInfo

// DefaultLabelTable returns the built-in known-address table.
func DefaultLabelTable() LabelTable {
	return LabelTable{
		"jitodontfront31111111TradeWithAxiomDotTrade": {Label: "Axiom anti-front-run program", Category: "axiom"},
		"FLASHX8DrLbgeR8FcfNV1F5krxYcYMUdBkrP1EPBtxB9": {Label: "Axiom execution/flash program", Category: "axiom"},
		"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P":  {Label: "Pump.fun program", Category: "pumpfun"},
	}
}

// vanityPrefixes maps a label category to the case-insensitive address
// prefix its ecosystem uses for vanity keys.
var vanityPrefixes = map[string]string{
	"axiom": "axm",
}

// Evidence list bounds for inferred entities.
const (
	maxVanityEvidence = 4
	maxLabelEvidence  = 3
)

// Classify matches candidate addresses against the label table and applies
// the entity inference heuristics. Pure and order-independent: all outputs
// are address-sorted so repeated runs serialize identically.
func Classify(candidates map[string]struct{}, table LabelTable) ([]domain.KnownLabel, []domain.InferredEntity) {
	sorted := make([]string, 0, len(candidates))
	for addr := range candidates {
		sorted = append(sorted, addr)
	}
	sort.Strings(sorted)

	labels := make([]domain.KnownLabel, 0)
	for _, addr := range sorted {
		if info, ok := table[addr]; ok {
			labels = append(labels, domain.KnownLabel{
				Address:  addr,
				Label:    info.Label,
				Category: info.Category,
			})
		}
	}

	entities := make([]domain.InferredEntity, 0)

	// Axiom cluster: known axiom-category labels plus vanity-prefix wallets.
	var vanityWallets []string
	prefix := vanityPrefixes["axiom"]
	for _, addr := range sorted {
		if strings.HasPrefix(strings.ToLower(addr), prefix) {
			vanityWallets = append(vanityWallets, addr)
		}
	}
	var axiomLabels []string
	for _, l := range labels {
		if l.Category == "axiom" {
			axiomLabels = append(axiomLabels, l.Address)
		}
	}
	if signals := len(vanityWallets) + len(axiomLabels); signals > 0 {
		confidence := "medium"
		if signals >= 3 {
			confidence = "high"
		}
		evidence := dedupe(append(head(vanityWallets, maxVanityEvidence), head(axiomLabels, maxLabelEvidence)...))
		entities = append(entities, domain.InferredEntity{
			Entity:     "Axiom-linked trading cluster",
			Confidence: confidence,
			Reason:     "Detected Axiom-associated addresses/programs and/or axm vanity-linked wallets.",
			Evidence:   evidence,
		})
	}

	var pumpLabels []string
	for _, l := range labels {
		if l.Category == "pumpfun" {
			pumpLabels = append(pumpLabels, l.Address)
		}
	}
	if len(pumpLabels) > 0 {
		entities = append(entities, domain.InferredEntity{
			Entity:     "Pump.fun ecosystem activity",
			Confidence: "medium",
			Reason:     "Detected known Pump.fun program interaction in linked/program addresses.",
			Evidence:   head(pumpLabels, maxLabelEvidence),
		})
	}

	return labels, entities
}

func head(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	return append([]string(nil), s...)
}

func dedupe(s []string) []string {
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
