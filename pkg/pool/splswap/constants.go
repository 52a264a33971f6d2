package splswap

import "github.com/gagliardetto/solana-go"

// SPL Token Swap Program ID (official Solana program)
const (
	SPL_TOKEN_SWAP_PROGRAM_ID = "SwaPpA9LAaLfeLi3a68M4DjnLqgtticKg6CnyNwgAC8"
)

var (
	SplTokenSwapProgramID = solana.MustPublicKeyFromBase58(SPL_TOKEN_SWAP_PROGRAM_ID)
)

const (
	// PoolDataSize is the packed length of a token-swap pool account.
	PoolDataSize = 324

	// MintAOffset and MintBOffset locate the pool mints for memcmp filters.
	MintAOffset = 131
	MintBOffset = 163
)

// Curve types understood by the swap program.
const (
	CurveConstantProduct uint8 = 0
	CurveConstantPrice   uint8 = 1
	CurveStable          uint8 = 2
	CurveOffset          uint8 = 3
)
