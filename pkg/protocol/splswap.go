package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solagg/pkg"
	"solagg/pkg/pool/splswap"
	"solagg/pkg/sol"
)

type SplSwapProtocol struct {
	SolClient *sol.Client
}

func NewSplSwap(solClient *sol.Client) *SplSwapProtocol {
	return &SplSwapProtocol{
		SolClient: solClient,
	}
}

func (p *SplSwapProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameSplTokenSwap
}

func (p *SplSwapProtocol) FetchPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]pkg.Pool, error) {
	baseMintPubkey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quoteMintPubkey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	programAccounts, err := p.fetchByMints(ctx, baseMintPubkey, quoteMintPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token swap pools: %w", err)
	}

	// Also try reverse pair
	reverseAccounts, err := p.fetchByMints(ctx, quoteMintPubkey, baseMintPubkey)
	if err == nil {
		programAccounts = append(programAccounts, reverseAccounts...)
	}

	res := make([]pkg.Pool, 0)
	for _, v := range programAccounts {
		pool := &splswap.SplSwapPool{PoolId: v.Pubkey}
		if err := pool.Decode(v.Account.Data.GetBinary()); err != nil {
			continue
		}
		res = append(res, pool)
	}
	return res, nil
}

func (p *SplSwapProtocol) fetchByMints(ctx context.Context, mintA, mintB solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	filters := []rpc.RPCFilter{
		{
			DataSize: splswap.PoolDataSize,
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: splswap.MintAOffset,
				Bytes:  mintA.Bytes(),
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: splswap.MintBOffset,
				Bytes:  mintB.Bytes(),
			},
		},
	}
	return p.SolClient.GetProgramAccountsWithOpts(ctx, splswap.SplTokenSwapProgramID, &rpc.GetProgramAccountsOpts{
		Filters: filters,
	})
}

func (p *SplSwapProtocol) FetchPoolByID(ctx context.Context, poolId string) (pkg.Pool, error) {
	poolPubkey, err := solana.PublicKeyFromBase58(poolId)
	if err != nil {
		return nil, fmt.Errorf("invalid pool ID: %w", err)
	}

	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolId, err)
	}

	pool := &splswap.SplSwapPool{PoolId: poolPubkey}
	if err := pool.Decode(account.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to parse pool data for pool %s: %w", poolId, err)
	}
	return pool, nil
}
