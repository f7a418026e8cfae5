// Command gentokens builds the known-token table for the orchestrator
// by querying each token contract's metadata and rendering the result
// to TOML.
//
// Usage:
//
//	go run ./cmd/gentokens \
//	  --node https://rpc.mainnet.near.org \
//	  --tokens wrap.near,usdc.near \
//	  --output ./tokens.toml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prism-swap/orchestrator/chain"
	"github.com/prism-swap/orchestrator/config"
	"github.com/prism-swap/orchestrator/models"
)

func main() {
	nodeURL := flag.String("node", "", "Ledger JSON-RPC endpoint")
	tokenList := flag.String("tokens", "", "Comma-separated token contract ids")
	output := flag.String("output", "./tokens.toml", "Output path for the token table")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall query timeout")
	flag.Parse()

	if *nodeURL == "" || *tokenList == "" {
		fmt.Fprintln(os.Stderr, "Error: --node and --tokens are required")
		os.Exit(1)
	}

	client := chain.NewClient(*nodeURL)
	reader := chain.NewReader(client)
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var metas []models.TokenMetadata
	for _, id := range strings.Split(*tokenList, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		meta, err := reader.TokenMetadata(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: metadata for %s: %v\n", id, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s (%d decimals)\n", id, meta.Symbol, meta.Decimals)
		metas = append(metas, meta)
	}

	if err := config.WriteTokensFile(*output, metas); err != nil {
		fmt.Fprintf(os.Stderr, "Error while writing token table: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d tokens to %s\n", len(metas), *output)
}
