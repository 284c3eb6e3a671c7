// Package main generates a one-shot wallet report and prints it as JSON.
// Engine only: no social search, model analysis or telemetry.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"wallet-recon/internal/config"
	"wallet-recon/internal/recon"
	"wallet-recon/internal/solana"
)

func main() {
	var (
		wallet  = flag.String("wallet", "", "target wallet address (required)")
		limit   = flag.Int("limit", 50, "signature fetch limit (5..500)")
		rpcURL  = flag.String("rpc", "https://api.mainnet-beta.solana.com", "Solana RPC endpoint")
		timeout = flag.Duration("timeout", 25*time.Second, "overall request timeout")
	)
	flag.Parse()

	if *wallet == "" {
		fmt.Fprintln(os.Stderr, "usage: report -wallet <address> [-limit N] [-rpc URL] [-timeout D]")
		os.Exit(2)
	}
	if err := solana.ValidateAddress(*wallet); err != nil {
		fmt.Fprintf(os.Stderr, "invalid wallet: %v\n", err)
		os.Exit(2)
	}
	if *limit < config.MinSignatureLimit || *limit > config.MaxSignatureLimit {
		fmt.Fprintf(os.Stderr, "limit must be within %d..%d\n", config.MinSignatureLimit, config.MaxSignatureLimit)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rpc := solana.NewClient(*rpcURL, solana.WithTimeout(*timeout))
	collector := recon.NewCollector(rpc, recon.DefaultLabelTable(), nil)

	metrics, intel, err := collector.CollectWalletReport(ctx, *wallet, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}

	out := map[string]interface{}{
		"metrics":      metrics,
		"intelligence": intel,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
		os.Exit(1)
	}
}
