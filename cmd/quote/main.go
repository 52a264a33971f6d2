package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solagg/pkg/config"
	"solagg/pkg/protocol"
	"solagg/pkg/router"
	"solagg/pkg/sol"
)

type QuoteResponse struct {
	InputMint            string      `json:"inputMint"`
	OutputMint           string      `json:"outputMint"`
	InAmount             string      `json:"inAmount"`
	OutAmount            string      `json:"outAmount"`
	RoutePlan            []RoutePlan `json:"routePlan"`
	SlippageBps          int         `json:"slippageBps"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
}

type RoutePlan struct {
	Protocol   string `json:"protocol"`
	PoolID     string `json:"poolId"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
}

type QuoteError struct {
	Error string `json:"error"`
}

var (
	rpcEndpoints = flag.String("rpc", "", "Comma-separated Solana RPC endpoints (reads from .env if not specified)")
	inputMint    = flag.String("input", "", "Input token mint address (required)")
	outputMint   = flag.String("output", "", "Output token mint address (required)")
	amount       = flag.String("amount", "", "Input amount in smallest units (required)")
	slippageBps  = flag.Int("slippage", 50, "Slippage tolerance in basis points (default: 50 = 0.5%)")
	rateLimit    = flag.Int("ratelimit", 20, "RPC requests per second limit per endpoint (default: 20)")
	jsonOutput   = flag.Bool("json", true, "Output as JSON (default: true)")
	useRpcPool   = flag.Bool("use-pool", true, "Use RPC pool for load balancing (default: true)")
	watch        = flag.Bool("watch", false, "Keep running and print a fresh quote whenever a pool account changes")
	wsEndpoint   = flag.String("ws", "", "Websocket endpoint for -watch (reads WS_ENDPOINT from .env if not specified)")
)

func main() {
	// Load .env file
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	flag.Parse()

	// Validate required flags
	if *inputMint == "" || *outputMint == "" || *amount == "" {
		fmt.Fprintln(os.Stderr, "Error: Missing required arguments")
		fmt.Fprintln(os.Stderr, "\nUsage:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nExample:")
		fmt.Fprintln(os.Stderr, "  quote -input So11111111111111111111111111111111111111112 \\")
		fmt.Fprintln(os.Stderr, "        -output EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v \\")
		fmt.Fprintln(os.Stderr, "        -amount 1000000000")
		os.Exit(1)
	}

	// Parse and validate addresses
	inTokenAddr, err := solana.PublicKeyFromBase58(*inputMint)
	if err != nil {
		outputError(fmt.Sprintf("Invalid input mint address: %v", err))
		os.Exit(1)
	}

	outTokenAddr, err := solana.PublicKeyFromBase58(*outputMint)
	if err != nil {
		outputError(fmt.Sprintf("Invalid output mint address: %v", err))
		os.Exit(1)
	}

	// Parse amount
	amountIn, ok := math.NewIntFromString(*amount)
	if !ok || amountIn.LTE(math.ZeroInt()) {
		outputError("Invalid amount: must be a positive integer")
		os.Exit(1)
	}

	ctx := context.Background()

	// Parse RPC endpoints
	var endpoints []string
	if *rpcEndpoints != "" {
		endpoints = strings.Split(*rpcEndpoints, ",")
		for i := range endpoints {
			endpoints[i] = strings.TrimSpace(endpoints[i])
		}
	} else {
		endpoints = config.GetRPCEndpoints()
		if len(endpoints) == 0 {
			outputError("No RPC endpoints configured. Set RPC_ENDPOINTS in .env or use -rpc flag")
			os.Exit(1)
		}
	}

	logger := zap.NewNop()
	if !*jsonOutput {
		logger, err = zap.NewDevelopment()
		if err != nil {
			outputError(fmt.Sprintf("Failed to create logger: %v", err))
			os.Exit(1)
		}
		defer logger.Sync()
	}

	// Initialize RPC pool or single client
	var rpcPool *sol.RPCPool
	var solClient *sol.Client

	if *useRpcPool && len(endpoints) > 1 {
		rpcPool, err = sol.NewRPCPool(ctx, endpoints, "", *rateLimit)
		if err != nil {
			outputError(fmt.Sprintf("Failed to create RPC pool: %v", err))
			os.Exit(1)
		}
		solClient = rpcPool.GetClient()
	} else {
		solClient, err = sol.NewClient(ctx, endpoints[0], "", *rateLimit)
		if err != nil {
			outputError(fmt.Sprintf("Failed to create Solana client: %v", err))
			os.Exit(1)
		}
	}

	// Initialize router with all supported venues
	r := router.NewSimpleRouter(logger,
		protocol.NewSplSwap(solClient),
		protocol.NewSaber(solClient),
		protocol.NewRaydium(solClient),
		protocol.NewSerum(solClient),
	)

	err = r.QueryAllPools(ctx, inTokenAddr.String(), outTokenAddr.String())
	if err != nil {
		outputError(fmt.Sprintf("Failed to query pools: %v", err))
		os.Exit(1)
	}

	if len(r.Pools) == 0 {
		outputError("No pools found for this token pair")
		os.Exit(1)
	}

	// Get best pool and quote
	if err := printQuote(ctx, r, solClient, inTokenAddr, outTokenAddr, amountIn); err != nil {
		outputError(err.Error())
		os.Exit(1)
	}

	if !*watch {
		return
	}

	// Watch mode: subscribe to pool accounts over websocket and requote
	// whenever one of them changes.
	ws := *wsEndpoint
	if ws == "" {
		ws = config.GetWSEndpoint()
	}
	if ws == "" {
		outputError("No websocket endpoint configured. Set WS_ENDPOINT in .env or use -ws flag")
		os.Exit(1)
	}

	manager, err := r.Watch(ctx, ws)
	if err != nil {
		outputError(fmt.Sprintf("Failed to start pool watch: %v", err))
		os.Exit(1)
	}
	defer manager.Close()

	updates := make(chan string, 16)
	for _, p := range r.Pools {
		manager.RegisterHandler(p.GetID(), func(poolID string, data []byte, slot uint64) {
			select {
			case updates <- poolID:
			default:
			}
		})
	}

	for poolID := range updates {
		logger.Debug("pool account changed", zap.String("pool", poolID))
		if err := printQuote(ctx, r, solClient, inTokenAddr, outTokenAddr, amountIn); err != nil {
			outputError(err.Error())
		}
	}
}

func printQuote(ctx context.Context, r *router.SimpleRouter, solClient *sol.Client, inTokenAddr, outTokenAddr solana.PublicKey, amountIn math.Int) error {
	bestPool, amountOut, err := r.GetBestPool(ctx, solClient, inTokenAddr.String(), amountIn)
	if err != nil {
		return fmt.Errorf("failed to get best pool: %w", err)
	}

	// Calculate minimum amount out with slippage
	minAmountOut := amountOut.Mul(math.NewInt(int64(10000 - *slippageBps))).Quo(math.NewInt(10000))

	protocolName := string(bestPool.ProtocolName())

	response := QuoteResponse{
		InputMint:            inTokenAddr.String(),
		OutputMint:           outTokenAddr.String(),
		InAmount:             amountIn.String(),
		OutAmount:            amountOut.String(),
		SlippageBps:          *slippageBps,
		OtherAmountThreshold: minAmountOut.String(),
		RoutePlan: []RoutePlan{
			{
				Protocol:   protocolName,
				PoolID:     bestPool.GetID(),
				InputMint:  inTokenAddr.String(),
				OutputMint: outTokenAddr.String(),
				InAmount:   amountIn.String(),
				OutAmount:  amountOut.String(),
			},
		},
	}

	if *jsonOutput {
		jsonData, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonData))
	} else {
		fmt.Printf("\n=== Quote Results ===\n")
		fmt.Printf("Route: %s\n", protocolName)
		fmt.Printf("Pool ID: %s\n", bestPool.GetID())
		fmt.Printf("Input: %s %s\n", amountIn.String(), inTokenAddr.String())
		fmt.Printf("Output: %s %s\n", amountOut.String(), outTokenAddr.String())
		fmt.Printf("Minimum Output (with %d bps slippage): %s\n", *slippageBps, minAmountOut.String())
	}
	return nil
}

func outputError(msg string) {
	if *jsonOutput {
		errResp := QuoteError{Error: msg}
		jsonData, _ := json.MarshalIndent(errResp, "", "  ")
		fmt.Fprintln(os.Stderr, string(jsonData))
	} else {
		log.Println("Error:", msg)
	}
}
