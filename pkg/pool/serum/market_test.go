package serum

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mainnet SOL/USDC market account snapshot.
const solUsdcMarketData = "GmH4gu6PYUUKDZqX8AT2ZH7MKQkqEiK1rkgus44yrCJvP7UDfLpQzbFKzfg" +
	"Ux1oSffopN2NGno33fnjhD37awk2MPJrXgRiQjwQWWwspgrrjXVKhP87vynWu4FzjGgx8USsnBa5" +
	"mNEZb2rKvNmVZKekzZUpdSAiXEMbVvEpAn1tQTderQCh69t84sPfcVfseAPEKyJYcAiFLCTrKFmQ3" +
	"SVQiartpqiySprqLqkqto5Z3LAVRGBvVvcinYuZBN49ZbBaMGxXS9wt6tXN8ZqmoZMfYvc3un68Du" +
	"J5vyRPyiYz56LqovWnbjjXY76rRPzsbXR3EqYNMyCFjoqxnsH3LLJVYXwT11ggvUery3J8bhDbdvS" +
	"JaacCyTEuaMuWXjJMcsBxW2NQLAPzasX8vu1uTDjqnvCkZKhYcGtCpiLddLQEMXu6mTEE6ZmT73rH" +
	"CLaoGKPSYxuVkunGb4AtkU4mSUfWw3EbKc6s6sEvgi5Ec47RYGdNDMK31jENakYtSAweGRSin1iB7" +
	"G11FU1xhNE"

func decodeFixture(t *testing.T) *Market {
	t.Helper()

	data, err := base58.Decode(solUsdcMarketData)
	require.NoError(t, err)
	require.Len(t, data, MarketDataSize)

	market := &Market{}
	require.NoError(t, market.Decode(data))
	return market
}

func TestDecodeMarket(t *testing.T) {
	market := decodeFixture(t)

	assert.Equal(t, FlagInitialized|FlagMarket, market.AccountFlags)
	assert.Equal(t, "9wFFyRfZBsuAha4YcuxcXLKwMxJR43S7fPfQLusDBzvT", market.OwnAddress.String())
	assert.Equal(t, uint64(1), market.VaultSignerNonce)
	assert.Equal(t, "So11111111111111111111111111111111111111112", market.BaseMint.String())
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", market.QuoteMint.String())
	assert.Equal(t, "36c6YqAwyGKQG66XEp2dJc5JqjaBNv7sVghEtJv4c7u6", market.BaseVault.String())
	assert.Equal(t, "8CFo8bL8mZQK8abbFyypFMwEDd8tVJjHTTojMLgQTUSZ", market.QuoteVault.String())
	assert.Equal(t, "AZG3tFCFtiCqEwyardENBQNpHqxgzbMw8uKeZEw2nRG5", market.RequestQueue.String())
	assert.Equal(t, "5KKsLVU6TcbVDK4BS6K1DGDxnh4Q9xjYJ8XaDCG5t8ht", market.EventQueue.String())
	assert.Equal(t, "14ivtgssEBoBjuZJtSAPKYgpUK7DmnSwuPMqJoVTSgKJ", market.Bids.String())
	assert.Equal(t, "CEQdAFKdycHugujQg9k2wbmxjcpdYZyVLfV9WerTnafJ", market.Asks.String())
	assert.Equal(t, uint64(100_000_000), market.BaseLotSize)
	assert.Equal(t, uint64(100), market.QuoteLotSize)
	assert.Equal(t, uint64(394_852_400_000_000), market.BaseDepositsTotal)
	assert.Equal(t, uint64(0), market.FeeRateBps)
}

func TestDecodeMarketErrors(t *testing.T) {
	data, err := base58.Decode(solUsdcMarketData)
	require.NoError(t, err)

	market := &Market{}

	// Truncated data.
	assert.Error(t, market.Decode(data[:MarketDataSize-1]))

	// Corrupt head framing.
	bad := append([]byte(nil), data...)
	bad[0] = 'x'
	assert.Error(t, market.Decode(bad))

	// Corrupt tail framing.
	bad = append([]byte(nil), data...)
	bad[MarketDataSize-1] = 'x'
	assert.Error(t, market.Decode(bad))

	// Wrong account flags.
	bad = append([]byte(nil), data...)
	bad[5] = 0x05
	assert.Error(t, market.Decode(bad))
}

func TestVaultSigner(t *testing.T) {
	market := decodeFixture(t)

	signer, err := market.VaultSigner()
	require.NoError(t, err)
	assert.Equal(t, "F8Vyqk3unwxkXukZFQeYyGmFfTG3CAX4v24iyrjEYBJV", signer.String())
}

func TestFindSide(t *testing.T) {
	market := decodeFixture(t)

	side, err := market.FindSide(market.BaseMint)
	require.NoError(t, err)
	assert.Equal(t, SideAsk, side)

	side, err = market.FindSide(market.QuoteMint)
	require.NoError(t, err)
	assert.Equal(t, SideBid, side)

	_, err = market.FindSide(solana.NewWallet().PublicKey())
	assert.Error(t, err)
}

func TestMarketSwapAccounts(t *testing.T) {
	market := decodeFixture(t)
	openOrders := solana.NewWallet().PublicKey()

	signer, err := market.VaultSigner()
	require.NoError(t, err)

	metas, err := market.SwapAccounts(openOrders)
	require.NoError(t, err)
	require.Len(t, metas, 11)

	assert.Equal(t, openOrders, metas[0].PublicKey)
	assert.True(t, metas[0].IsWritable)
	assert.Equal(t, market.OwnAddress, metas[1].PublicKey)
	assert.Equal(t, market.RequestQueue, metas[2].PublicKey)
	assert.Equal(t, market.EventQueue, metas[3].PublicKey)
	assert.Equal(t, market.Bids, metas[4].PublicKey)
	assert.Equal(t, market.Asks, metas[5].PublicKey)
	assert.Equal(t, market.BaseVault, metas[6].PublicKey)
	assert.Equal(t, market.QuoteVault, metas[7].PublicKey)
	assert.Equal(t, signer, metas[8].PublicKey)
	assert.False(t, metas[8].IsWritable)
	assert.Equal(t, solana.SysVarRentPubkey, metas[9].PublicKey)
	assert.Equal(t, SerumDexProgramID, metas[10].PublicKey)
}
