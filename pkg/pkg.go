package pkg

import (
	"context"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"solagg/pkg/sol"
)

// ProtocolName identifies a liquidity venue.
type ProtocolName string

const (
	ProtocolNameSplTokenSwap ProtocolName = "spl_token_swap"
	ProtocolNameSerumDex     ProtocolName = "serum_dex"
	ProtocolNameSaber        ProtocolName = "saber_stable_swap"
	ProtocolNameRaydium      ProtocolName = "raydium_amm"
)

// Pool is a decoded liquidity venue account.
type Pool interface {
	ProtocolName() ProtocolName
	GetProgramID() solana.PublicKey
	GetID() string
	GetTokens() (string, string)
	Decode(data []byte) error
	Quote(ctx context.Context, solClient *sol.Client, inputMint string, amount math.Int) (math.Int, error)
}

// Protocol fetches pools for one venue.
type Protocol interface {
	ProtocolName() ProtocolName
	FetchPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]Pool, error)
	FetchPoolByID(ctx context.Context, poolId string) (Pool, error)
}
