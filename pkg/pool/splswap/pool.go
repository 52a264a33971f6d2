package splswap

import (
	"context"
	"encoding/binary"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"solagg/pkg"
	"solagg/pkg/sol"
)

// SplSwapPool represents an SPL Token Swap pool
type SplSwapPool struct {
	Version                     uint8
	IsInitialized               bool
	Nonce                       uint8
	TokenProgramId              solana.PublicKey
	TokenAccountA               solana.PublicKey
	TokenAccountB               solana.PublicKey
	TokenPool                   solana.PublicKey
	MintA                       solana.PublicKey
	MintB                       solana.PublicKey
	FeeAccount                  solana.PublicKey
	TradeFeeNumerator           uint64
	TradeFeeDenominator         uint64
	OwnerTradeFeeNumerator      uint64
	OwnerTradeFeeDenominator    uint64
	OwnerWithdrawFeeNumerator   uint64
	OwnerWithdrawFeeDenominator uint64
	HostFeeNumerator            uint64
	HostFeeDenominator          uint64
	CurveType                   uint8
	CurveParameters             [32]byte

	PoolId solana.PublicKey

	// Pool reserves (fetched from token accounts)
	ReserveA cosmath.Int
	ReserveB cosmath.Int
}

func (p *SplSwapPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameSplTokenSwap
}

func (p *SplSwapPool) GetProgramID() solana.PublicKey {
	return SplTokenSwapProgramID
}

func (p *SplSwapPool) GetID() string {
	return p.PoolId.String()
}

func (p *SplSwapPool) GetTokens() (string, string) {
	return p.MintA.String(), p.MintB.String()
}

func (p *SplSwapPool) Decode(data []byte) error {
	if len(data) < PoolDataSize {
		return fmt.Errorf("data too short for SPL Token Swap pool: got %d bytes", len(data))
	}

	offset := 0

	// Version, IsInitialized, Nonce
	p.Version = data[offset]
	offset++
	p.IsInitialized = data[offset] == 1
	offset++
	p.Nonce = data[offset]
	offset++

	// Token program ID
	copy(p.TokenProgramId[:], data[offset:offset+32])
	offset += 32

	// Token accounts (vaults)
	copy(p.TokenAccountA[:], data[offset:offset+32])
	offset += 32
	copy(p.TokenAccountB[:], data[offset:offset+32])
	offset += 32

	// Pool token mint
	copy(p.TokenPool[:], data[offset:offset+32])
	offset += 32

	// Token mints
	copy(p.MintA[:], data[offset:offset+32])
	offset += 32
	copy(p.MintB[:], data[offset:offset+32])
	offset += 32

	// Pool fee account
	copy(p.FeeAccount[:], data[offset:offset+32])
	offset += 32

	// Fees
	p.TradeFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.TradeFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.OwnerTradeFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.OwnerTradeFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.OwnerWithdrawFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.OwnerWithdrawFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.HostFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.HostFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	// Curve type and parameter blob
	p.CurveType = data[offset]
	offset++
	copy(p.CurveParameters[:], data[offset:offset+32])

	if !p.IsInitialized {
		return fmt.Errorf("token swap pool %s is not initialized", p.PoolId)
	}
	return nil
}

// Authority derives the swap authority from the stored bump seed.
func (p *SplSwapPool) Authority() (solana.PublicKey, error) {
	authority, err := solana.CreateProgramAddress(
		[][]byte{p.PoolId.Bytes(), {p.Nonce}},
		SplTokenSwapProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid swap authority nonce %d for %s: %w", p.Nonce, p.PoolId, err)
	}
	return authority, nil
}

// SwapAccounts returns the account tail the aggregator expects after the
// fixed prefix for a token-swap step. hostFee may be nil.
func (p *SplSwapPool) SwapAccounts(hostFee *solana.PublicKey) (solana.AccountMetaSlice, error) {
	authority, err := p.Authority()
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.PoolId, false, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(p.TokenAccountA, true, false),
		solana.NewAccountMeta(p.TokenAccountB, true, false),
		solana.NewAccountMeta(p.TokenPool, true, false),
		solana.NewAccountMeta(p.FeeAccount, true, false),
		solana.NewAccountMeta(SplTokenSwapProgramID, false, false),
	}
	if hostFee != nil {
		metas = append(metas, solana.NewAccountMeta(*hostFee, true, false))
	}
	return metas, nil
}

func (p *SplSwapPool) Quote(ctx context.Context, solClient *sol.Client, inputMint string, amount cosmath.Int) (cosmath.Int, error) {
	// Fetch vault balances
	accounts := []solana.PublicKey{p.TokenAccountA, p.TokenAccountB}
	results, err := solClient.GetMultipleAccountsWithOpts(ctx, accounts)
	if err != nil {
		return cosmath.ZeroInt(), fmt.Errorf("failed to fetch vault balances: %w", err)
	}

	for i, result := range results.Value {
		if result == nil {
			return cosmath.ZeroInt(), fmt.Errorf("vault account %s not found", accounts[i])
		}

		// Token account balance lives at offset 64
		vaultData := result.Data.GetBinary()
		if len(vaultData) < 72 {
			return cosmath.ZeroInt(), fmt.Errorf("vault account %s data too short: %d bytes", accounts[i], len(vaultData))
		}
		balance := binary.LittleEndian.Uint64(vaultData[64:72])

		if accounts[i].Equals(p.TokenAccountA) {
			p.ReserveA = cosmath.NewIntFromUint64(balance)
		} else {
			p.ReserveB = cosmath.NewIntFromUint64(balance)
		}
	}

	var reserveIn, reserveOut cosmath.Int
	if inputMint == p.MintA.String() {
		reserveIn = p.ReserveA
		reserveOut = p.ReserveB
	} else {
		reserveIn = p.ReserveB
		reserveOut = p.ReserveA
	}

	return p.quoteWithReserves(amount, reserveIn, reserveOut)
}

// UpdateFromAccountData refreshes cached state from a pushed account update.
func (p *SplSwapPool) UpdateFromAccountData(accountID string, data []byte) error {
	switch accountID {
	case p.PoolId.String():
		return p.Decode(data)
	case p.TokenAccountA.String(), p.TokenAccountB.String():
		if len(data) < 72 {
			return fmt.Errorf("token account data too short: %d bytes", len(data))
		}
		balance := binary.LittleEndian.Uint64(data[64:72])
		if accountID == p.TokenAccountA.String() {
			p.ReserveA = cosmath.NewIntFromUint64(balance)
		} else {
			p.ReserveB = cosmath.NewIntFromUint64(balance)
		}
		return nil
	default:
		return fmt.Errorf("account %s does not belong to pool %s", accountID, p.PoolId)
	}
}

// quoteWithReserves applies the trade fee and the constant-product formula.
func (p *SplSwapPool) quoteWithReserves(amount, reserveIn, reserveOut cosmath.Int) (cosmath.Int, error) {
	if amount.IsZero() {
		return cosmath.ZeroInt(), nil
	}
	if reserveIn.IsNil() || reserveOut.IsNil() || reserveIn.IsZero() || reserveOut.IsZero() {
		return cosmath.ZeroInt(), fmt.Errorf("pool %s has empty reserves", p.PoolId)
	}
	if p.TradeFeeDenominator == 0 {
		return cosmath.ZeroInt(), fmt.Errorf("pool %s has zero fee denominator", p.PoolId)
	}

	feeNumerator := cosmath.NewInt(int64(p.TradeFeeNumerator))
	feeDenominator := cosmath.NewInt(int64(p.TradeFeeDenominator))
	fee := amount.Mul(feeNumerator).Quo(feeDenominator)

	amountInWithFee := amount.Sub(fee)

	// amountOut = (reserveOut * amountInWithFee) / (reserveIn + amountInWithFee)
	denominator := reserveIn.Add(amountInWithFee)
	amountOut := reserveOut.Mul(amountInWithFee).Quo(denominator)

	return amountOut, nil
}
