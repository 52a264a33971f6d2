package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solagg/pkg/aggregator"
	"solagg/pkg/config"
	"solagg/pkg/pool/raydium"
	"solagg/pkg/pool/saber"
	"solagg/pkg/pool/serum"
	"solagg/pkg/pool/splswap"
	"solagg/pkg/protocol"
	"solagg/pkg/sol"
)

var (
	rpcEndpoint = flag.String("rpc", "", "Solana RPC endpoint (reads from .env if not specified)")
	ammInfoAddr = flag.String("amm", "", "Aggregator pair account address (required)")
	venue       = flag.String("venue", "", "Venue to swap through: spl_token_swap, serum_dex, saber_stable_swap, raydium_amm (required)")
	poolID      = flag.String("pool", "", "Venue pool or market address (required)")
	inputMint   = flag.String("input", "", "Input token mint address (required)")
	source      = flag.String("source", "", "User source token account (required)")
	destination = flag.String("dest", "", "User destination token account (required)")
	amount      = flag.String("amount", "", "Input amount in smallest units (required)")
	slippageBps = flag.Int("slippage", 50, "Slippage tolerance in basis points (default: 50 = 0.5%)")
	openOrders  = flag.String("open-orders", "", "Open orders account (serum_dex and raydium_amm only)")
	rateLimit   = flag.Int("ratelimit", 20, "RPC requests per second limit (default: 20)")
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	flag.Parse()

	if *ammInfoAddr == "" || *venue == "" || *poolID == "" || *inputMint == "" ||
		*source == "" || *destination == "" || *amount == "" {
		fmt.Fprintln(os.Stderr, "Error: Missing required arguments")
		fmt.Fprintln(os.Stderr, "\nUsage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	wallet, err := config.GetWallet()
	if err != nil {
		log.Fatalf("Failed to load wallet: %v", err)
	}

	endpoint := *rpcEndpoint
	if endpoint == "" {
		endpoints := config.GetRPCEndpoints()
		if len(endpoints) == 0 {
			log.Fatal("No RPC endpoints configured. Set RPC_ENDPOINTS in .env or use -rpc flag")
		}
		endpoint = endpoints[0]
	}

	ammInfoPubkey := mustPubkey(*ammInfoAddr, "amm")
	sourceMint := mustPubkey(*inputMint, "input")
	userSource := mustPubkey(*source, "source")
	userDest := mustPubkey(*destination, "dest")

	amountIn, ok := math.NewIntFromString(*amount)
	if !ok || amountIn.LTE(math.ZeroInt()) {
		log.Fatal("Invalid amount: must be a positive integer")
	}

	ctx := context.Background()

	solClient, err := sol.NewClient(ctx, endpoint, config.GetJitoEndpoint(), *rateLimit)
	if err != nil {
		log.Fatalf("Failed to create Solana client: %v", err)
	}

	programID := aggregator.DefaultProgramID
	if s := config.GetAggregatorProgramID(); s != "" {
		programID = mustPubkey(s, "AGGREGATOR_PROGRAM_ID")
	}

	client := aggregator.NewClient(solClient, programID, logger)

	ammInfo, err := client.FetchAmmInfo(ctx, ammInfoPubkey)
	if err != nil {
		log.Fatalf("Failed to fetch pair account: %v", err)
	}

	params := aggregator.SwapParams{
		Wallet:          wallet,
		AmmInfo:         ammInfo,
		UserSource:      userSource,
		UserDestination: userDest,
		SourceMint:      sourceMint,
		AmountIn:        amountIn.Uint64(),
	}

	var sig solana.Signature

	switch *venue {
	case "spl_token_swap":
		pool, err := protocol.NewSplSwap(solClient).FetchPoolByID(ctx, *poolID)
		if err != nil {
			log.Fatalf("Failed to fetch pool: %v", err)
		}
		swapPool := pool.(*splswap.SplSwapPool)
		fillExpectedOut(ctx, &params, solClient, swapPool.Quote, amountIn)
		sig, err = client.SwapSplTokenSwap(ctx, params, swapPool, nil)
		if err != nil {
			log.Fatalf("Swap failed: %v", err)
		}

	case "saber_stable_swap":
		pool, err := protocol.NewSaber(solClient).FetchPoolByID(ctx, *poolID)
		if err != nil {
			log.Fatalf("Failed to fetch pool: %v", err)
		}
		swapPool := pool.(*saber.StableSwapPool)
		fillExpectedOut(ctx, &params, solClient, swapPool.Quote, amountIn)
		sig, err = client.SwapStableSwap(ctx, params, swapPool)
		if err != nil {
			log.Fatalf("Swap failed: %v", err)
		}

	case "raydium_amm":
		pool, err := protocol.NewRaydium(solClient).FetchPoolByID(ctx, *poolID)
		if err != nil {
			log.Fatalf("Failed to fetch pool: %v", err)
		}
		amm := pool.(*raydium.RaydiumAmm)
		marketPool, err := protocol.NewSerum(solClient).FetchPoolByID(ctx, amm.Market.String())
		if err != nil {
			log.Fatalf("Failed to fetch backing market: %v", err)
		}
		fillExpectedOut(ctx, &params, solClient, amm.Quote, amountIn)
		sig, err = client.SwapRaydium(ctx, params, amm, marketPool.(*serum.Market), true)
		if err != nil {
			log.Fatalf("Swap failed: %v", err)
		}

	case "serum_dex":
		if *openOrders == "" {
			log.Fatal("serum_dex requires -open-orders")
		}
		pool, err := protocol.NewSerum(solClient).FetchPoolByID(ctx, *poolID)
		if err != nil {
			log.Fatalf("Failed to fetch market: %v", err)
		}
		// Order-book markets cannot be quoted client side; the caller's
		// slippage applies to the amount in.
		params.ExpectAmountOut = amountIn.Uint64()
		params.MinimumAmountOut = applySlippage(amountIn).Uint64()
		sig, err = client.SwapSerumDex(ctx, params, pool.(*serum.Market), mustPubkey(*openOrders, "open-orders"))
		if err != nil {
			log.Fatalf("Swap failed: %v", err)
		}

	default:
		log.Fatalf("Unknown venue: %s", *venue)
	}

	fmt.Printf("Swap confirmed: %s\n", sig)
}

type quoteFunc func(ctx context.Context, solClient *sol.Client, inputMint string, amount math.Int) (math.Int, error)

// fillExpectedOut quotes the venue and derives the minimum output from the
// slippage flag.
func fillExpectedOut(ctx context.Context, params *aggregator.SwapParams, solClient *sol.Client, quote quoteFunc, amountIn math.Int) {
	out, err := quote(ctx, solClient, params.SourceMint.String(), amountIn)
	if err != nil {
		log.Fatalf("Failed to quote: %v", err)
	}
	if out.IsZero() {
		log.Fatal("Quote returned zero output")
	}
	params.ExpectAmountOut = out.Uint64()
	params.MinimumAmountOut = applySlippage(out).Uint64()

	log.Printf("Quoted %s -> %s (minimum %d with %d bps slippage)",
		amountIn, out, params.MinimumAmountOut, *slippageBps)
}

func applySlippage(amount math.Int) math.Int {
	return amount.Mul(math.NewInt(int64(10000 - *slippageBps))).Quo(math.NewInt(10000))
}

func mustPubkey(s, name string) solana.PublicKey {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		log.Fatalf("Invalid %s address: %v", name, err)
	}
	return pk
}
