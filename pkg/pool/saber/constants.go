package saber

const (
	SABER_STABLE_SWAP_PROGRAM_ID = "SSwpkEEcbUqx4vtoEByFjSkhKdCT862DNVb52nZg1UZ"

	// SwapDataSize is the serialized size of a saber StableSwap account.
	SwapDataSize = 395

	// Byte offsets of the token mints inside the swap account, used for
	// getProgramAccounts memcmp filters.
	MintAOffset = 203
	MintBOffset = 235

	// The stable curve always trades between exactly two tokens.
	nCoins = 2

	// Newton's method iteration cap for the invariant computation.
	maxIterations = 32
)
