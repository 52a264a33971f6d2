package raydium

const (
	RAYDIUM_AMM_PROGRAM_ID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

	// The amm authority is a fixed PDA shared by every v4 pool.
	RAYDIUM_AMM_AUTHORITY = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"

	// AmmDataSize is the serialized size of a raydium v4 amm account.
	AmmDataSize = 752

	// Byte offsets of the coin and pc mints inside the amm account, used
	// for getProgramAccounts memcmp filters.
	CoinMintOffset = 400
	PcMintOffset   = 432

	// StatusInitialized is the only amm status this client will trade
	// against.
	StatusInitialized = 1

	// Default swap fee: 25 bps.
	DefaultFeeNumerator   = 25
	DefaultFeeDenominator = 10000
)
