package router

import (
	"context"
	"fmt"
	"sync"

	"cosmossdk.io/math"
	"go.uber.org/zap"

	"solagg/pkg"
	"solagg/pkg/pool/raydium"
	"solagg/pkg/pool/saber"
	"solagg/pkg/pool/splswap"
	"solagg/pkg/sol"
	"solagg/pkg/subscription"
)

type SimpleRouter struct {
	Protocols []pkg.Protocol
	Pools     []pkg.Pool

	log *zap.Logger
}

func NewSimpleRouter(logger *zap.Logger, protocols ...pkg.Protocol) *SimpleRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimpleRouter{
		Protocols: protocols,
		Pools:     []pkg.Pool{},
		log:       logger,
	}
}

func (r *SimpleRouter) QueryAllPools(ctx context.Context, baseMint, quoteMint string) error {
	var allPools []pkg.Pool

	for _, proto := range r.Protocols {
		r.log.Debug("fetching pools", zap.String("protocol", string(proto.ProtocolName())))
		pools, err := proto.FetchPoolsByPair(ctx, baseMint, quoteMint)
		if err != nil {
			r.log.Warn("failed to fetch pools",
				zap.String("protocol", string(proto.ProtocolName())),
				zap.Error(err))
			continue
		}
		allPools = append(allPools, pools...)
	}

	r.Pools = allPools
	return nil
}

// Watch subscribes every discovered pool to websocket account updates so
// repeated quotes read pushed reserves instead of refetching vaults. The
// caller owns the returned manager and closes it when done.
func (r *SimpleRouter) Watch(ctx context.Context, wsURL string) (*subscription.SubscriptionManager, error) {
	manager, err := subscription.NewSubscriptionManager(ctx, wsURL, r.log)
	if err != nil {
		return nil, err
	}
	for _, pool := range r.Pools {
		if err := manager.SubscribePool(pool); err != nil {
			r.log.Warn("failed to subscribe pool",
				zap.String("pool", pool.GetID()),
				zap.Error(err))
		}
	}
	return manager, nil
}

func (r *SimpleRouter) GetBestPool(ctx context.Context, solClient *sol.Client, tokenIn string, amountIn math.Int) (pkg.Pool, math.Int, error) {
	return r.GetBestPoolWithFilter(ctx, solClient, tokenIn, amountIn, nil, nil, 0)
}

func (r *SimpleRouter) GetBestPoolWithFilter(ctx context.Context, solClient *sol.Client, tokenIn string, amountIn math.Int, protocols, excludeProtocols []string, minLiquidity float64) (pkg.Pool, math.Int, error) {
	filteredPools := r.filterPools(protocols, excludeProtocols, minLiquidity, tokenIn)

	if len(filteredPools) == 0 {
		return nil, math.ZeroInt(), fmt.Errorf("no pools found after filtering")
	}

	type quoteResult struct {
		pool      pkg.Pool
		outAmount math.Int
		err       error
	}

	resultChan := make(chan quoteResult, len(filteredPools))
	var wg sync.WaitGroup

	// Quote every candidate concurrently
	for _, pool := range filteredPools {
		wg.Add(1)
		go func(p pkg.Pool) {
			defer wg.Done()
			outAmount, err := p.Quote(ctx, solClient, tokenIn, amountIn)
			resultChan <- quoteResult{
				pool:      p,
				outAmount: outAmount,
				err:       err,
			}
		}(pool)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var best pkg.Pool
	maxOut := math.NewInt(0)

	for result := range resultChan {
		if result.err != nil {
			r.log.Debug("failed to quote pool",
				zap.String("pool", result.pool.GetID()),
				zap.Error(result.err))
			continue
		}
		if result.outAmount.GT(maxOut) {
			maxOut = result.outAmount
			best = result.pool
		}
	}

	if best == nil {
		return nil, math.ZeroInt(), fmt.Errorf("no route found")
	}
	return best, maxOut, nil
}

// getPoolLiquidity estimates pool liquidity from the output-side reserve.
// For WSOL/USDC style pairs the quote reserve tracks USD closely enough for
// filtering. Reserves are only populated after a Quote call; unquoted pools
// pass the filter.
func getPoolLiquidity(pool pkg.Pool, tokenIn string) float64 {
	tokenA, _ := pool.GetTokens()

	var liquidityRaw math.Int

	switch p := pool.(type) {
	case *splswap.SplSwapPool:
		if tokenA == tokenIn {
			liquidityRaw = p.ReserveB
		} else {
			liquidityRaw = p.ReserveA
		}
	case *saber.StableSwapPool:
		if tokenA == tokenIn {
			liquidityRaw = p.ReserveB
		} else {
			liquidityRaw = p.ReserveA
		}
	case *raydium.RaydiumAmm:
		if tokenA == tokenIn {
			liquidityRaw = p.ReservePc
		} else {
			liquidityRaw = p.ReserveCoin
		}
	default:
		// Order-book markets carry no reserve notion; let them through.
		return 1000000.0
	}

	if liquidityRaw.IsNil() || liquidityRaw.IsZero() {
		return 1000000.0
	}

	// Assume 6 decimals for stables and wrapped SOL
	return float64(liquidityRaw.Int64()) / float64(1e6)
}

// filterPools filters the candidate set by protocol name and liquidity.
func (r *SimpleRouter) filterPools(protocols, excludeProtocols []string, minLiquidity float64, tokenIn string) []pkg.Pool {
	if len(protocols) == 0 && len(excludeProtocols) == 0 && minLiquidity == 0 {
		return r.Pools
	}

	var filtered []pkg.Pool

	for _, pool := range r.Pools {
		protocolName := string(pool.ProtocolName())

		if len(protocols) > 0 {
			found := false
			for _, name := range protocols {
				if protocolName == name {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}

		excluded := false
		for _, name := range excludeProtocols {
			if protocolName == name {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}

		if minLiquidity > 0 {
			liquidity := getPoolLiquidity(pool, tokenIn)
			if liquidity < minLiquidity {
				r.log.Debug("filtering out low liquidity pool",
					zap.String("pool", pool.GetID()),
					zap.Float64("liquidity", liquidity))
				continue
			}
		}

		filtered = append(filtered, pool)
	}

	return filtered
}
