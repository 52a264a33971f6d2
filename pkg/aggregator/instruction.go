package aggregator

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction discriminants. The leading byte of every instruction payload
// selects the operation; the program rejects unknown tags.
const (
	TagInitializeAmmInfo         uint8 = 1
	TagInitDexMarketOpenOrders   uint8 = 2
	TagUpdateDexMarketOpenOrders uint8 = 3
	TagSwapFees                  uint8 = 4
	TagSwapSplTokenSwap          uint8 = 5
	TagSwapSerumDex              uint8 = 6
	TagSwapStableSwap            uint8 = 7
	TagSwapRaydium               uint8 = 8
	TagSwapTwoSteps              uint8 = 9
	TagSwapRaydiumNoTargetOrders uint8 = 10
)

// Exchanger type codes used inside the two-step payload.
const (
	ExchangerSplTokenSwap uint8 = 0
	ExchangerSerumDex     uint8 = 1
	ExchangerStableSwap   uint8 = 2
	ExchangerRaydium      uint8 = 3
)

// InitializeInstruction carries a tag plus the authority bump seed. Used for
// InitializeAmmInfo and InitDexMarketOpenOrders.
type InitializeInstruction struct {
	bin.BaseVariant
	Tag   uint8
	Nonce uint8

	programID               solana.PublicKey
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *InitializeInstruction) ProgramID() solana.PublicKey {
	return inst.programID
}

func (inst *InitializeInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.Impl.(solana.AccountsGettable).GetAccounts()
}

func (inst *InitializeInstruction) Data() ([]byte, error) {
	return []byte{inst.Tag, inst.Nonce}, nil
}

// PlainInstruction carries only a tag. Used for UpdateDexMarketOpenOrders
// and SwapFees.
type PlainInstruction struct {
	bin.BaseVariant
	Tag uint8

	programID               solana.PublicKey
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *PlainInstruction) ProgramID() solana.PublicKey {
	return inst.programID
}

func (inst *PlainInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.Impl.(solana.AccountsGettable).GetAccounts()
}

func (inst *PlainInstruction) Data() ([]byte, error) {
	return []byte{inst.Tag}, nil
}

// SwapInstruction is the single-step swap payload, identical for all four
// venues; the tag selects which venue tail the program expects.
type SwapInstruction struct {
	bin.BaseVariant
	Tag              uint8
	AmountIn         uint64
	ExpectAmountOut  uint64
	MinimumAmountOut uint64

	programID               solana.PublicKey
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *SwapInstruction) ProgramID() solana.PublicKey {
	return inst.programID
}

func (inst *SwapInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.Impl.(solana.AccountsGettable).GetAccounts()
}

func (inst *SwapInstruction) Data() ([]byte, error) {
	if err := validateSwapAmounts(inst.AmountIn, inst.ExpectAmountOut, inst.MinimumAmountOut); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(inst.Tag)

	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(inst.AmountIn, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount in: %w", err)
	}
	if err := enc.WriteUint64(inst.ExpectAmountOut, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode expect amount out: %w", err)
	}
	if err := enc.WriteUint64(inst.MinimumAmountOut, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode minimum amount out: %w", err)
	}
	return buf.Bytes(), nil
}

// ExchangeStep describes one leg of a two-step swap: the venue kind and how
// many venue-tail accounts belong to it. The program adds the pair accounts
// to its length check itself.
type ExchangeStep struct {
	Exchanger     uint8
	AccountsCount uint8
}

// TwoStepSwapInstruction swaps through two venues atomically. The account
// list is the fixed user prefix followed by each step's accounts.
type TwoStepSwapInstruction struct {
	bin.BaseVariant
	AmountIn         uint64
	ExpectAmountOut  uint64
	MinimumAmountOut uint64
	Step1            ExchangeStep
	Step2            ExchangeStep

	programID               solana.PublicKey
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *TwoStepSwapInstruction) ProgramID() solana.PublicKey {
	return inst.programID
}

func (inst *TwoStepSwapInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.Impl.(solana.AccountsGettable).GetAccounts()
}

func (inst *TwoStepSwapInstruction) Data() ([]byte, error) {
	if err := validateSwapAmounts(inst.AmountIn, inst.ExpectAmountOut, inst.MinimumAmountOut); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(TagSwapTwoSteps)

	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(inst.AmountIn, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount in: %w", err)
	}
	if err := enc.WriteUint64(inst.ExpectAmountOut, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode expect amount out: %w", err)
	}
	if err := enc.WriteUint64(inst.MinimumAmountOut, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode minimum amount out: %w", err)
	}
	buf.Write([]byte{inst.Step1.Exchanger, inst.Step1.AccountsCount})
	buf.Write([]byte{inst.Step2.Exchanger, inst.Step2.AccountsCount})
	return buf.Bytes(), nil
}

func validateSwapAmounts(amountIn, expectOut, minimumOut uint64) error {
	if amountIn == 0 {
		return fmt.Errorf("amount in must be non-zero")
	}
	if expectOut == 0 || minimumOut == 0 {
		return fmt.Errorf("output amounts must be non-zero")
	}
	if expectOut < minimumOut {
		return fmt.Errorf("expect amount out %d below minimum amount out %d", expectOut, minimumOut)
	}
	return nil
}
