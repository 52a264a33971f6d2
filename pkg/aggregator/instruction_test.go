package aggregator

import (
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestInitializeInstructionData(t *testing.T) {
	inst := &InitializeInstruction{Tag: TagInitializeAmmInfo, Nonce: 253}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	data, err := inst.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{TagInitializeAmmInfo, 253}, data)
}

func TestPlainInstructionData(t *testing.T) {
	inst := &PlainInstruction{Tag: TagSwapFees}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	data, err := inst.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{TagSwapFees}, data)
}

func TestSwapInstructionData(t *testing.T) {
	inst := &SwapInstruction{
		Tag:              TagSwapSplTokenSwap,
		AmountIn:         1_000_000_000,
		ExpectAmountOut:  153_000_000,
		MinimumAmountOut: 152_000_000,
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	data, err := inst.Data()
	require.NoError(t, err)
	require.Len(t, data, 25)

	assert.Equal(t, TagSwapSplTokenSwap, data[0])
	assert.Equal(t, u64le(1_000_000_000), data[1:9])
	assert.Equal(t, u64le(153_000_000), data[9:17])
	assert.Equal(t, u64le(152_000_000), data[17:25])
}

func TestSwapInstructionDataRejectsBadAmounts(t *testing.T) {
	cases := []struct {
		name                     string
		amountIn, expect, minOut uint64
	}{
		{"zero amount in", 0, 100, 90},
		{"zero expect out", 100, 0, 90},
		{"zero minimum out", 100, 100, 0},
		{"expect below minimum", 100, 90, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inst := &SwapInstruction{
				Tag:              TagSwapSerumDex,
				AmountIn:         tc.amountIn,
				ExpectAmountOut:  tc.expect,
				MinimumAmountOut: tc.minOut,
			}
			inst.BaseVariant = bin.BaseVariant{Impl: inst}

			_, err := inst.Data()
			assert.Error(t, err)
		})
	}
}

func TestTwoStepSwapInstructionData(t *testing.T) {
	inst := &TwoStepSwapInstruction{
		AmountIn:         500,
		ExpectAmountOut:  400,
		MinimumAmountOut: 390,
		Step1:            ExchangeStep{Exchanger: ExchangerSplTokenSwap, AccountsCount: 11},
		Step2:            ExchangeStep{Exchanger: ExchangerStableSwap, AccountsCount: 11},
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	data, err := inst.Data()
	require.NoError(t, err)
	require.Len(t, data, 29)

	assert.Equal(t, TagSwapTwoSteps, data[0])
	assert.Equal(t, u64le(500), data[1:9])
	assert.Equal(t, u64le(400), data[9:17])
	assert.Equal(t, u64le(390), data[17:25])
	assert.Equal(t, []byte{ExchangerSplTokenSwap, 11, ExchangerStableSwap, 11}, data[25:29])
}
