package domain

// CounterpartyStat is one ranked transfer counterparty.
type CounterpartyStat struct {
	Wallet    string `json:"wallet"`
	Transfers int    `json:"transfers"`
}

// WalletMetrics is the financial summary of one wallet report. Field names
// are a stable contract: downstream layers pass them through unmodified
// into prompts and telemetry payloads.
type WalletMetrics struct {
	Wallet            string             `json:"wallet"`
	SignatureCount    int                `json:"signature_count"`
	TotalFeesSOL      float64            `json:"total_fees_sol"`
	InboundSOL        float64            `json:"inbound_sol"`
	OutboundSOL       float64            `json:"outbound_sol"`
	TransferVolumeSOL float64            `json:"transfer_volume_sol"`
	NetFlowSOL        float64            `json:"net_flow_sol"`
	ActiveDays        int                `json:"active_days"`
	TopCounterparties []CounterpartyStat `json:"top_counterparties"`
}

// FundingEdge is a ranked inbound or outbound funding relationship.
type FundingEdge struct {
	Wallet    string  `json:"wallet"`
	TotalSOL  float64 `json:"total_sol"`
	Transfers int     `json:"transfers"`
}

// ProgramUsage is one ranked program interaction count.
type ProgramUsage struct {
	Program      string `json:"program"`
	Interactions int    `json:"interactions"`
}

// KnownLabel is a static label attached to an observed address.
type KnownLabel struct {
	Address  string `json:"address"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// InferredEntity is a heuristic entity attribution with supporting evidence.
type InferredEntity struct {
	Entity     string   `json:"entity"`
	Confidence string   `json:"confidence"`
	Reason     string   `json:"reason"`
	Evidence   []string `json:"evidence"`
}

// WalletIntelligence is the linkage and behavioral summary of one wallet
// report. First/last seen are ISO-8601 strings, empty when the wallet has
// no timestamped activity.
type WalletIntelligence struct {
	FirstSeenAt          string           `json:"first_seen_at,omitempty"`
	LastSeenAt           string           `json:"last_seen_at,omitempty"`
	UniqueCounterparties int              `json:"unique_counterparties"`
	LikelyFunders        []FundingEdge    `json:"likely_funders"`
	LikelyFundedWallets  []FundingEdge    `json:"likely_funded_wallets"`
	FrequentPrograms     []ProgramUsage   `json:"frequent_programs"`
	LinkedWallets        []string         `json:"linked_wallets"`
	KnownLabels          []KnownLabel     `json:"known_labels"`
	InferredEntities     []InferredEntity `json:"inferred_entities"`
}

// WalletReportRequest is the inbound report request body.
type WalletReportRequest struct {
	Wallet        string `json:"wallet"`
	MaxSignatures *int   `json:"max_signatures,omitempty"`
}

// TraceStep records the duration and outcome of one report stage.
type TraceStep struct {
	Step       string `json:"step"`
	DurationMS int64  `json:"duration_ms"`
	OK         bool   `json:"ok"`
	Detail     string `json:"detail,omitempty"`
}

// SocialMention is one social post referencing a queried address.
type SocialMention struct {
	Username  string `json:"username,omitempty"`
	Name      string `json:"name,omitempty"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
	URL       string `json:"url,omitempty"`
}

// SocialIntel summarizes a social mention search.
type SocialIntel struct {
	QueryTerms   []string        `json:"query_terms"`
	TotalResults int             `json:"total_results"`
	Mentions     []SocialMention `json:"mentions"`
}

// WalletReportResponse is the full report handed back to the caller.
type WalletReportResponse struct {
	Metrics      *WalletMetrics      `json:"metrics"`
	Intelligence *WalletIntelligence `json:"intelligence,omitempty"`
	Social       *SocialIntel        `json:"social,omitempty"`
	Analysis     string              `json:"analysis"`
	Model        string              `json:"model,omitempty"`
	Trace        []TraceStep         `json:"trace"`
}
