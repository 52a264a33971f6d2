package splswap

import (
	"encoding/binary"
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePool(p *SplSwapPool) []byte {
	data := make([]byte, PoolDataSize)
	data[0] = p.Version
	if p.IsInitialized {
		data[1] = 1
	}
	data[2] = p.Nonce
	copy(data[3:35], p.TokenProgramId[:])
	copy(data[35:67], p.TokenAccountA[:])
	copy(data[67:99], p.TokenAccountB[:])
	copy(data[99:131], p.TokenPool[:])
	copy(data[131:163], p.MintA[:])
	copy(data[163:195], p.MintB[:])
	copy(data[195:227], p.FeeAccount[:])

	fees := []uint64{
		p.TradeFeeNumerator, p.TradeFeeDenominator,
		p.OwnerTradeFeeNumerator, p.OwnerTradeFeeDenominator,
		p.OwnerWithdrawFeeNumerator, p.OwnerWithdrawFeeDenominator,
		p.HostFeeNumerator, p.HostFeeDenominator,
	}
	for i, v := range fees {
		binary.LittleEndian.PutUint64(data[227+i*8:], v)
	}

	data[291] = p.CurveType
	copy(data[292:324], p.CurveParameters[:])
	return data
}

func testPool(t *testing.T) *SplSwapPool {
	t.Helper()

	poolID := solana.NewWallet().PublicKey()
	_, nonce, err := solana.FindProgramAddress([][]byte{poolID.Bytes()}, SplTokenSwapProgramID)
	require.NoError(t, err)

	return &SplSwapPool{
		Version:             1,
		IsInitialized:       true,
		Nonce:               nonce,
		TokenProgramId:      solana.TokenProgramID,
		TokenAccountA:       solana.NewWallet().PublicKey(),
		TokenAccountB:       solana.NewWallet().PublicKey(),
		TokenPool:           solana.NewWallet().PublicKey(),
		MintA:               solana.NewWallet().PublicKey(),
		MintB:               solana.NewWallet().PublicKey(),
		FeeAccount:          solana.NewWallet().PublicKey(),
		TradeFeeNumerator:   25,
		TradeFeeDenominator: 10000,
		CurveType:           CurveConstantProduct,
		PoolId:              poolID,
	}
}

func TestDecodePool(t *testing.T) {
	pool := testPool(t)
	data := encodePool(pool)

	decoded := &SplSwapPool{PoolId: pool.PoolId}
	require.NoError(t, decoded.Decode(data))

	assert.Equal(t, pool.Version, decoded.Version)
	assert.True(t, decoded.IsInitialized)
	assert.Equal(t, pool.Nonce, decoded.Nonce)
	assert.Equal(t, pool.TokenAccountA, decoded.TokenAccountA)
	assert.Equal(t, pool.TokenAccountB, decoded.TokenAccountB)
	assert.Equal(t, pool.TokenPool, decoded.TokenPool)
	assert.Equal(t, pool.MintA, decoded.MintA)
	assert.Equal(t, pool.MintB, decoded.MintB)
	assert.Equal(t, pool.FeeAccount, decoded.FeeAccount)
	assert.Equal(t, pool.TradeFeeNumerator, decoded.TradeFeeNumerator)
	assert.Equal(t, pool.TradeFeeDenominator, decoded.TradeFeeDenominator)
	assert.Equal(t, pool.CurveType, decoded.CurveType)
}

func TestDecodePoolErrors(t *testing.T) {
	pool := testPool(t)

	decoded := &SplSwapPool{}
	assert.Error(t, decoded.Decode(make([]byte, PoolDataSize-1)))

	pool.IsInitialized = false
	assert.Error(t, decoded.Decode(encodePool(pool)))
}

func TestSwapAccountsOrder(t *testing.T) {
	pool := testPool(t)

	authority, err := pool.Authority()
	require.NoError(t, err)

	metas, err := pool.SwapAccounts(nil)
	require.NoError(t, err)
	require.Len(t, metas, 7)

	assert.Equal(t, pool.PoolId, metas[0].PublicKey)
	assert.Equal(t, authority, metas[1].PublicKey)
	assert.Equal(t, pool.TokenAccountA, metas[2].PublicKey)
	assert.True(t, metas[2].IsWritable)
	assert.Equal(t, pool.TokenAccountB, metas[3].PublicKey)
	assert.True(t, metas[3].IsWritable)
	assert.Equal(t, pool.TokenPool, metas[4].PublicKey)
	assert.Equal(t, pool.FeeAccount, metas[5].PublicKey)
	assert.Equal(t, SplTokenSwapProgramID, metas[6].PublicKey)

	hostFee := solana.NewWallet().PublicKey()
	metas, err = pool.SwapAccounts(&hostFee)
	require.NoError(t, err)
	require.Len(t, metas, 8)
	assert.Equal(t, hostFee, metas[7].PublicKey)
	assert.True(t, metas[7].IsWritable)
}

func TestQuoteWithReserves(t *testing.T) {
	pool := testPool(t)
	pool.TradeFeeNumerator = 0
	pool.TradeFeeDenominator = 1

	// No fee: pure constant product.
	out, err := pool.quoteWithReserves(cosmath.NewInt(1000), cosmath.NewInt(9000), cosmath.NewInt(9000))
	require.NoError(t, err)
	assert.Equal(t, cosmath.NewInt(900), out)

	// 1% fee on the input.
	pool.TradeFeeNumerator = 1
	pool.TradeFeeDenominator = 100
	out, err = pool.quoteWithReserves(cosmath.NewInt(100), cosmath.NewInt(1000), cosmath.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, cosmath.NewInt(90), out)

	// Zero input quotes zero.
	out, err = pool.quoteWithReserves(cosmath.ZeroInt(), cosmath.NewInt(1000), cosmath.NewInt(1000))
	require.NoError(t, err)
	assert.True(t, out.IsZero())

	// Empty reserves are an error.
	_, err = pool.quoteWithReserves(cosmath.NewInt(100), cosmath.ZeroInt(), cosmath.NewInt(1000))
	assert.Error(t, err)
}

func TestUpdateFromAccountData(t *testing.T) {
	pool := testPool(t)

	vaultData := make([]byte, 165)
	binary.LittleEndian.PutUint64(vaultData[64:72], 5_000_000)
	require.NoError(t, pool.UpdateFromAccountData(pool.TokenAccountA.String(), vaultData))
	assert.Equal(t, cosmath.NewInt(5_000_000), pool.ReserveA)

	binary.LittleEndian.PutUint64(vaultData[64:72], 7_000_000)
	require.NoError(t, pool.UpdateFromAccountData(pool.TokenAccountB.String(), vaultData))
	assert.Equal(t, cosmath.NewInt(7_000_000), pool.ReserveB)

	assert.Error(t, pool.UpdateFromAccountData(solana.NewWallet().PublicKey().String(), vaultData))
	assert.Error(t, pool.UpdateFromAccountData(pool.TokenAccountA.String(), make([]byte, 10)))
}
