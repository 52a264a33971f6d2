package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solagg/pkg"
	"solagg/pkg/pool/serum"
	"solagg/pkg/sol"
)

type SerumProtocol struct {
	SolClient *sol.Client
}

func NewSerum(solClient *sol.Client) *SerumProtocol {
	return &SerumProtocol{
		SolClient: solClient,
	}
}

func (p *SerumProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameSerumDex
}

func (p *SerumProtocol) FetchPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]pkg.Pool, error) {
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
		return nil, fmt.Errorf("failed to fetch serum markets: %w", err)
	}

	// Also try reverse pair
	reverseAccounts, err := p.fetchByMints(ctx, quoteMintPubkey, baseMintPubkey)
	if err == nil {
		programAccounts = append(programAccounts, reverseAccounts...)
	}

	res := make([]pkg.Pool, 0)
	for _, v := range programAccounts {
		market := &serum.Market{MarketId: v.Pubkey}
		if err := market.Decode(v.Account.Data.GetBinary()); err != nil {
			continue
		}
		res = append(res, market)
	}
	return res, nil
}

func (p *SerumProtocol) fetchByMints(ctx context.Context, baseMint, quoteMint solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	filters := []rpc.RPCFilter{
		{
			DataSize: serum.MarketDataSize,
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: serum.BaseMintOffset,
				Bytes:  baseMint.Bytes(),
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: serum.QuoteMintOffset,
				Bytes:  quoteMint.Bytes(),
			},
		},
	}
	return p.SolClient.GetProgramAccountsWithOpts(ctx, serum.SerumDexProgramID, &rpc.GetProgramAccountsOpts{
		Filters: filters,
	})
}

func (p *SerumProtocol) FetchPoolByID(ctx context.Context, marketId string) (pkg.Pool, error) {
	marketPubkey, err := solana.PublicKeyFromBase58(marketId)
	if err != nil {
		return nil, fmt.Errorf("invalid market ID: %w", err)
	}

	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, marketPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to get market account %s: %w", marketId, err)
	}

	market := &serum.Market{MarketId: marketPubkey}
	if err := market.Decode(account.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to parse market data for %s: %w", marketId, err)
	}
	return market, nil
}
