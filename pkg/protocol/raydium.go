package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solagg/pkg"
	"solagg/pkg/pool/raydium"
	"solagg/pkg/sol"
)

type RaydiumProtocol struct {
	SolClient *sol.Client
}

func NewRaydium(solClient *sol.Client) *RaydiumProtocol {
	return &RaydiumProtocol{
		SolClient: solClient,
	}
}

func (p *RaydiumProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydium
}

func (p *RaydiumProtocol) FetchPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]pkg.Pool, error) {
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
		return nil, fmt.Errorf("failed to fetch raydium pools: %w", err)
	}

	// Also try reverse pair
	reverseAccounts, err := p.fetchByMints(ctx, quoteMintPubkey, baseMintPubkey)
	if err == nil {
		programAccounts = append(programAccounts, reverseAccounts...)
	}

	res := make([]pkg.Pool, 0)
	for _, v := range programAccounts {
		pool := &raydium.RaydiumAmm{AmmId: v.Pubkey}
		if err := pool.Decode(v.Account.Data.GetBinary()); err != nil {
			continue
		}
		res = append(res, pool)
	}
	return res, nil
}

func (p *RaydiumProtocol) fetchByMints(ctx context.Context, coinMint, pcMint solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	filters := []rpc.RPCFilter{
		{
			DataSize: raydium.AmmDataSize,
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: raydium.CoinMintOffset,
				Bytes:  coinMint.Bytes(),
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: raydium.PcMintOffset,
				Bytes:  pcMint.Bytes(),
			},
		},
	}
	return p.SolClient.GetProgramAccountsWithOpts(ctx, raydium.RaydiumAmmProgramID, &rpc.GetProgramAccountsOpts{
		Filters: filters,
	})
}

func (p *RaydiumProtocol) FetchPoolByID(ctx context.Context, poolId string) (pkg.Pool, error) {
	poolPubkey, err := solana.PublicKeyFromBase58(poolId)
	if err != nil {
		return nil, fmt.Errorf("invalid pool ID: %w", err)
	}

	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolId, err)
	}

	pool := &raydium.RaydiumAmm{AmmId: poolPubkey}
	if err := pool.Decode(account.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to parse pool data for pool %s: %w", poolId, err)
	}
	return pool, nil
}
