package saber

import (
	"math/big"
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T) *StableSwapPool {
	t.Helper()

	poolID := solana.NewWallet().PublicKey()
	_, nonce, err := solana.FindProgramAddress([][]byte{poolID.Bytes()}, StableSwapProgramID)
	require.NoError(t, err)

	return &StableSwapPool{
		IsInitialized:    true,
		Nonce:            nonce,
		InitialAmpFactor: 100,
		TargetAmpFactor:  100,
		FutureAdminKey:   solana.NewWallet().PublicKey(),
		AdminKey:         solana.NewWallet().PublicKey(),
		TokenAccountA:    solana.NewWallet().PublicKey(),
		TokenAccountB:    solana.NewWallet().PublicKey(),
		PoolMint:         solana.NewWallet().PublicKey(),
		MintA:            solana.NewWallet().PublicKey(),
		MintB:            solana.NewWallet().PublicKey(),
		AdminFeeAccountA: solana.NewWallet().PublicKey(),
		AdminFeeAccountB: solana.NewWallet().PublicKey(),
		Fees: Fees{
			AdminTradeFeeNumerator:   1,
			AdminTradeFeeDenominator: 2,
			TradeFeeNumerator:        4,
			TradeFeeDenominator:      10000,
		},
		PoolId: poolID,
	}
}

func TestStableSwapRoundTrip(t *testing.T) {
	pool := testPool(t)
	pool.StartRampTimestamp = 1700000000
	pool.StopRampTimestamp = 1700086400

	data := pool.Encode()
	require.Len(t, data, SwapDataSize)

	decoded := &StableSwapPool{PoolId: pool.PoolId}
	require.NoError(t, decoded.Decode(data))

	assert.True(t, decoded.IsInitialized)
	assert.False(t, decoded.IsPaused)
	assert.Equal(t, pool.Nonce, decoded.Nonce)
	assert.Equal(t, pool.InitialAmpFactor, decoded.InitialAmpFactor)
	assert.Equal(t, pool.TargetAmpFactor, decoded.TargetAmpFactor)
	assert.Equal(t, pool.StartRampTimestamp, decoded.StartRampTimestamp)
	assert.Equal(t, pool.StopRampTimestamp, decoded.StopRampTimestamp)
	assert.Equal(t, pool.AdminKey, decoded.AdminKey)
	assert.Equal(t, pool.TokenAccountA, decoded.TokenAccountA)
	assert.Equal(t, pool.TokenAccountB, decoded.TokenAccountB)
	assert.Equal(t, pool.PoolMint, decoded.PoolMint)
	assert.Equal(t, pool.MintA, decoded.MintA)
	assert.Equal(t, pool.MintB, decoded.MintB)
	assert.Equal(t, pool.AdminFeeAccountA, decoded.AdminFeeAccountA)
	assert.Equal(t, pool.AdminFeeAccountB, decoded.AdminFeeAccountB)
	assert.Equal(t, pool.Fees, decoded.Fees)
}

func TestStableSwapDecodeErrors(t *testing.T) {
	pool := testPool(t)

	decoded := &StableSwapPool{}
	assert.Error(t, decoded.Decode(make([]byte, SwapDataSize-1)))

	pool.IsInitialized = false
	assert.Error(t, decoded.Decode(pool.Encode()))
}

func TestSwapAccountsAdminFeeSide(t *testing.T) {
	pool := testPool(t)

	authority, err := pool.Authority()
	require.NoError(t, err)

	// A -> B trade pays the admin fee on the B side.
	metas, err := pool.SwapAccounts(pool.MintA)
	require.NoError(t, err)
	require.Len(t, metas, 7)

	assert.Equal(t, pool.PoolId, metas[0].PublicKey)
	assert.Equal(t, authority, metas[1].PublicKey)
	assert.Equal(t, pool.TokenAccountA, metas[2].PublicKey)
	assert.True(t, metas[2].IsWritable)
	assert.Equal(t, pool.TokenAccountB, metas[3].PublicKey)
	assert.Equal(t, pool.AdminFeeAccountB, metas[4].PublicKey)
	assert.Equal(t, StableSwapProgramID, metas[6].PublicKey)

	// B -> A trade pays on the A side.
	metas, err = pool.SwapAccounts(pool.MintB)
	require.NoError(t, err)
	assert.Equal(t, pool.AdminFeeAccountA, metas[4].PublicKey)

	_, err = pool.SwapAccounts(solana.NewWallet().PublicKey())
	assert.Error(t, err)
}

func TestComputeD(t *testing.T) {
	leverage := new(big.Int).SetUint64(100 * nCoins)

	// Balanced reserves: D equals the reserve sum.
	x := big.NewInt(1_000_000)
	d := computeD(leverage, x, x)
	assert.Equal(t, big.NewInt(2_000_000), d)

	// Imbalanced reserves: D sits between 2*min and the sum.
	d = computeD(leverage, big.NewInt(400_000), big.NewInt(1_600_000))
	assert.True(t, d.Cmp(big.NewInt(800_000)) > 0)
	assert.True(t, d.Cmp(big.NewInt(2_000_000)) < 0)

	// Empty pool.
	assert.Equal(t, 0, computeD(leverage, big.NewInt(0), big.NewInt(0)).Sign())
}

func TestComputeYPreservesInvariant(t *testing.T) {
	leverage := new(big.Int).SetUint64(100 * nCoins)
	x := big.NewInt(1_000_000)
	y := big.NewInt(1_000_000)

	d := computeD(leverage, x, y)

	// Moving x up must move y down, and the invariant must hold again.
	newX := big.NewInt(1_100_000)
	newY := computeY(leverage, newX, d)
	assert.True(t, newY.Cmp(y) < 0)

	d2 := computeD(leverage, newX, newY)
	diff := new(big.Int).Sub(d, d2)
	assert.True(t, diff.CmpAbs(big.NewInt(10)) <= 0, "invariant drifted by %s", diff)
}

func TestStableQuote(t *testing.T) {
	pool := testPool(t)

	// A high-amplification stable pool trades near 1:1 on balanced
	// reserves.
	reserve := cosmath.NewInt(10_000_000_000)
	amountIn := cosmath.NewInt(1_000_000)

	out, err := pool.quoteWithReserves(amountIn, reserve, reserve)
	require.NoError(t, err)

	assert.True(t, out.LT(amountIn))
	// Within 0.2% of the input after the 4 bps trade fee.
	assert.True(t, out.GT(amountIn.MulRaw(9980).QuoRaw(10000)),
		"quote %s too far from input %s", out, amountIn)

	// Zero input quotes zero.
	out, err = pool.quoteWithReserves(cosmath.ZeroInt(), reserve, reserve)
	require.NoError(t, err)
	assert.True(t, out.IsZero())

	// Empty reserves are an error.
	_, err = pool.quoteWithReserves(amountIn, cosmath.ZeroInt(), reserve)
	assert.Error(t, err)
}
