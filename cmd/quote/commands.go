package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/kjannette/nordfolio-backend/internal/config"
	"github.com/kjannette/nordfolio-backend/internal/logging"
	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/kjannette/nordfolio-backend/internal/pricing"
)

type quoter interface {
	GetPrice(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, bool)
	GetBatchPrices(ctx context.Context, reqs []models.PriceRequest) []models.Quote
}

// newQuoter is swapped in tests.
var newQuoter = func() (quoter, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	return pricing.NewFromConfig(cfg, log), nil
}

var stdout io.Writer = os.Stdout

type getCmd struct {
	assetType string
}

func (*getCmd) Name() string     { return "get" }
func (*getCmd) Synopsis() string { return "fetch the current price of one symbol" }
func (*getCmd) Usage() string {
	return `get [-type stock|fund] SYMBOL

  Prints the quote as JSON. Exits with a failure status when no provider
  could price the symbol.
`
}

func (c *getCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.assetType, "type", "stock", "asset type: stock or fund")
}

func (c *getCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one SYMBOL is required.")
		return subcommands.ExitUsageError
	}
	assetType := models.AssetType(c.assetType)
	if !assetType.Valid() {
		fmt.Fprintf(os.Stderr, "Error: unknown asset type %q\n", c.assetType)
		return subcommands.ExitUsageError
	}

	q, err := newQuoter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	quote, ok := q.GetPrice(ctx, f.Arg(0), assetType)
	if !ok {
		fmt.Fprintf(os.Stderr, "No price found for %s\n", f.Arg(0))
		return subcommands.ExitFailure
	}
	return printJSON(quote)
}

type batchCmd struct{}

func (*batchCmd) Name() string     { return "batch" }
func (*batchCmd) Synopsis() string { return "fetch prices for several symbols at once" }
func (*batchCmd) Usage() string {
	return `batch SYMBOL[:type] ...

  Each argument is a symbol, optionally followed by ":stock" or ":fund"
  (default stock). Prints {"prices": [...], "missing": [...]} as JSON.
`
}

func (*batchCmd) SetFlags(*flag.FlagSet) {}

func (c *batchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one SYMBOL is required.")
		return subcommands.ExitUsageError
	}

	reqs := make([]models.PriceRequest, 0, f.NArg())
	for _, arg := range f.Args() {
		req, err := parseRequest(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		reqs = append(reqs, req)
	}

	q, err := newQuoter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	prices := q.GetBatchPrices(ctx, reqs)
	found := make(map[string]bool, len(prices))
	for _, p := range prices {
		found[p.Symbol] = true
	}
	missing := []string{}
	for _, r := range reqs {
		if !found[r.Symbol] {
			missing = append(missing, r.Symbol)
		}
	}

	return printJSON(map[string]any{"prices": prices, "missing": missing})
}

func parseRequest(arg string) (models.PriceRequest, error) {
	symbol, typ, hasType := strings.Cut(arg, ":")
	req := models.PriceRequest{Symbol: strings.TrimSpace(symbol), AssetType: models.AssetStock}
	if req.Symbol == "" {
		return req, fmt.Errorf("empty symbol in %q", arg)
	}
	if hasType {
		req.AssetType = models.AssetType(strings.ToLower(typ))
		if !req.AssetType.Valid() {
			return req, fmt.Errorf("unknown asset type in %q", arg)
		}
	}
	return req, nil
}

func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
