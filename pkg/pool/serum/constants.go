package serum

import "github.com/gagliardetto/solana-go"

// Serum DEX v3 Program ID
const (
	SERUM_DEX_PROGRAM_ID = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
)

var (
	SerumDexProgramID = solana.MustPublicKeyFromBase58(SERUM_DEX_PROGRAM_ID)
)

const (
	// MarketDataSize is the packed length of a market account, including the
	// 5-byte head and 7-byte tail framing.
	MarketDataSize = 388

	// BaseMintOffset and QuoteMintOffset locate the mints for memcmp filters.
	BaseMintOffset  = 53
	QuoteMintOffset = 85
)

// Market account flag bits.
const (
	FlagInitialized uint64 = 1 << 0
	FlagMarket      uint64 = 1 << 1
)

var (
	headPadding = []byte("serum")
	tailPadding = []byte("padding")
)
