package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the externally supplied service configuration. The engine
// itself hardcodes none of these.
type Config struct {
	SolanaRPCURL   string
	SignatureLimit int
	TimeoutSeconds int
	MetricsOnly    bool

	EnableXSearch bool
	XBearerToken  string
	XMaxResults   int

	AWSRegion      string
	BedrockAPIKey  string
	BedrockModelID string

	DDAPIKey   string
	DDService  string
	DDEnv      string
	DDVersion  string
	DDSite     string
	DDSendLogs bool

	HTTPPort int
	LogLevel string
}

// Signature limit bounds accepted per request.
const (
	MinSignatureLimit = 5
	MaxSignatureLimit = 500
)

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		SolanaRPCURL:   v.GetString("SOLANA_RPC_URL"),
		SignatureLimit: v.GetInt("SOLANA_SIGNATURE_LIMIT"),
		TimeoutSeconds: v.GetInt("RECON_TIMEOUT_SECONDS"),
		MetricsOnly:    v.GetBool("RECON_METRICS_ONLY"),
		EnableXSearch:  v.GetBool("RECON_ENABLE_X_SEARCH"),
		XBearerToken:   v.GetString("X_BEARER_TOKEN"),
		XMaxResults:    v.GetInt("X_MAX_RESULTS"),
		AWSRegion:      v.GetString("AWS_REGION"),
		BedrockAPIKey:  v.GetString("BEDROCK_API_KEY"),
		BedrockModelID: v.GetString("BEDROCK_MODEL_ID"),
		DDAPIKey:       v.GetString("DD_API_KEY"),
		DDService:      v.GetString("DD_SERVICE"),
		DDEnv:          v.GetString("DD_ENV"),
		DDVersion:      v.GetString("DD_VERSION"),
		DDSite:         v.GetString("DD_SITE"),
		DDSendLogs:     v.GetBool("DD_SEND_LOGS"),
		HTTPPort:       v.GetInt("HTTP_PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
	}

	if cfg.SolanaRPCURL == "" {
		return nil, fmt.Errorf("SOLANA_RPC_URL must not be empty")
	}
	if cfg.SignatureLimit < MinSignatureLimit || cfg.SignatureLimit > MaxSignatureLimit {
		return nil, fmt.Errorf("SOLANA_SIGNATURE_LIMIT %d outside %d..%d",
			cfg.SignatureLimit, MinSignatureLimit, MaxSignatureLimit)
	}
	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("RECON_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	v.SetDefault("SOLANA_SIGNATURE_LIMIT", 50)
	v.SetDefault("RECON_TIMEOUT_SECONDS", 25)
	v.SetDefault("RECON_METRICS_ONLY", false)
	v.SetDefault("RECON_ENABLE_X_SEARCH", false)
	v.SetDefault("X_MAX_RESULTS", 10)
	v.SetDefault("AWS_REGION", "us-west-2")
	v.SetDefault("BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0")
	v.SetDefault("DD_SERVICE", "wallet-recon")
	v.SetDefault("DD_ENV", "dev")
	v.SetDefault("DD_VERSION", "0.1.0")
	v.SetDefault("DD_SITE", "datadoghq.com")
	v.SetDefault("DD_SEND_LOGS", true)
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
}
