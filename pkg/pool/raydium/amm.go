package raydium

import (
	"context"
	"encoding/binary"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"solagg/pkg"
	"solagg/pkg/pool/serum"
	"solagg/pkg/sol"
)

var (
	RaydiumAmmProgramID = solana.MustPublicKeyFromBase58(RAYDIUM_AMM_PROGRAM_ID)
	RaydiumAmmAuthority = solana.MustPublicKeyFromBase58(RAYDIUM_AMM_AUTHORITY)
)

// Field offsets inside the v4 amm account. The leading section is a block
// of u64 parameters and accumulators; the pubkeys start at 336.
const (
	statusOffset           = 0
	nonceOffset            = 8
	coinDecimalsOffset     = 32
	pcDecimalsOffset       = 40
	swapFeeNumeratorOffset = 176
	swapFeeDenomOffset     = 184
	coinVaultOffset        = 336
	pcVaultOffset          = 368
	lpMintOffset           = 464
	openOrdersOffset       = 496
	marketOffset           = 528
	serumProgramOffset     = 560
	targetOrdersOffset     = 592
)

// RaydiumAmm represents a raydium v4 amm pool
type RaydiumAmm struct {
	Status             uint64
	Nonce              uint64
	CoinDecimals       uint64
	PcDecimals         uint64
	SwapFeeNumerator   uint64
	SwapFeeDenominator uint64
	CoinVault          solana.PublicKey
	PcVault            solana.PublicKey
	CoinMint           solana.PublicKey
	PcMint             solana.PublicKey
	LpMint             solana.PublicKey
	OpenOrders         solana.PublicKey
	Market             solana.PublicKey
	SerumProgram       solana.PublicKey
	TargetOrders       solana.PublicKey

	AmmId solana.PublicKey

	// Pool reserves (fetched from token accounts)
	ReserveCoin cosmath.Int
	ReservePc   cosmath.Int
}

func (p *RaydiumAmm) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydium
}

func (p *RaydiumAmm) GetProgramID() solana.PublicKey {
	return RaydiumAmmProgramID
}

func (p *RaydiumAmm) GetID() string {
	return p.AmmId.String()
}

func (p *RaydiumAmm) GetTokens() (string, string) {
	return p.CoinMint.String(), p.PcMint.String()
}

func (p *RaydiumAmm) Decode(data []byte) error {
	if len(data) < AmmDataSize {
		return fmt.Errorf("data too short for raydium amm: got %d bytes", len(data))
	}

	p.Status = binary.LittleEndian.Uint64(data[statusOffset : statusOffset+8])
	p.Nonce = binary.LittleEndian.Uint64(data[nonceOffset : nonceOffset+8])
	p.CoinDecimals = binary.LittleEndian.Uint64(data[coinDecimalsOffset : coinDecimalsOffset+8])
	p.PcDecimals = binary.LittleEndian.Uint64(data[pcDecimalsOffset : pcDecimalsOffset+8])
	p.SwapFeeNumerator = binary.LittleEndian.Uint64(data[swapFeeNumeratorOffset : swapFeeNumeratorOffset+8])
	p.SwapFeeDenominator = binary.LittleEndian.Uint64(data[swapFeeDenomOffset : swapFeeDenomOffset+8])

	copy(p.CoinVault[:], data[coinVaultOffset:coinVaultOffset+32])
	copy(p.PcVault[:], data[pcVaultOffset:pcVaultOffset+32])
	copy(p.CoinMint[:], data[CoinMintOffset:CoinMintOffset+32])
	copy(p.PcMint[:], data[PcMintOffset:PcMintOffset+32])
	copy(p.LpMint[:], data[lpMintOffset:lpMintOffset+32])
	copy(p.OpenOrders[:], data[openOrdersOffset:openOrdersOffset+32])
	copy(p.Market[:], data[marketOffset:marketOffset+32])
	copy(p.SerumProgram[:], data[serumProgramOffset:serumProgramOffset+32])
	copy(p.TargetOrders[:], data[targetOrdersOffset:targetOrdersOffset+32])

	if p.Status != StatusInitialized {
		return fmt.Errorf("raydium amm %s has status %d, want %d", p.AmmId, p.Status, StatusInitialized)
	}
	return nil
}

// SwapAccounts returns the account tail the aggregator expects after the
// fixed prefix for a raydium step. The serum market backing the amm must
// already be fetched and decoded; withTargetOrders selects between the
// 15-account and the shortened 14-account variant.
func (p *RaydiumAmm) SwapAccounts(market *serum.Market, withTargetOrders bool) (solana.AccountMetaSlice, error) {
	if !market.OwnAddress.Equals(p.Market) && !market.MarketId.Equals(p.Market) {
		return nil, fmt.Errorf("market %s does not back amm %s", market.GetID(), p.AmmId)
	}
	vaultSigner, err := market.VaultSigner()
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.AmmId, true, false),
		solana.NewAccountMeta(RaydiumAmmAuthority, false, false),
		solana.NewAccountMeta(p.OpenOrders, true, false),
	}
	if withTargetOrders {
		metas = append(metas, solana.NewAccountMeta(p.TargetOrders, true, false))
	}
	metas = append(metas,
		solana.NewAccountMeta(p.CoinVault, true, false),
		solana.NewAccountMeta(p.PcVault, true, false),
		solana.NewAccountMeta(p.SerumProgram, false, false),
		solana.NewAccountMeta(p.Market, true, false),
		solana.NewAccountMeta(market.Bids, true, false),
		solana.NewAccountMeta(market.Asks, true, false),
		solana.NewAccountMeta(market.EventQueue, true, false),
		solana.NewAccountMeta(market.BaseVault, true, false),
		solana.NewAccountMeta(market.QuoteVault, true, false),
		solana.NewAccountMeta(vaultSigner, false, false),
		solana.NewAccountMeta(RaydiumAmmProgramID, false, false),
	)
	return metas, nil
}

func (p *RaydiumAmm) Quote(ctx context.Context, solClient *sol.Client, inputMint string, amount cosmath.Int) (cosmath.Int, error) {
	// Fetch vault balances
	accounts := []solana.PublicKey{p.CoinVault, p.PcVault}
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

		if accounts[i].Equals(p.CoinVault) {
			p.ReserveCoin = cosmath.NewIntFromUint64(balance)
		} else {
			p.ReservePc = cosmath.NewIntFromUint64(balance)
		}
	}

	var reserveIn, reserveOut cosmath.Int
	if inputMint == p.CoinMint.String() {
		reserveIn = p.ReserveCoin
		reserveOut = p.ReservePc
	} else {
		reserveIn = p.ReservePc
		reserveOut = p.ReserveCoin
	}

	return p.quoteWithReserves(amount, reserveIn, reserveOut)
}

// UpdateFromAccountData refreshes cached state from a pushed account update.
func (p *RaydiumAmm) UpdateFromAccountData(accountID string, data []byte) error {
	switch accountID {
	case p.AmmId.String():
		return p.Decode(data)
	case p.CoinVault.String(), p.PcVault.String():
		if len(data) < 72 {
			return fmt.Errorf("token account data too short: %d bytes", len(data))
		}
		balance := binary.LittleEndian.Uint64(data[64:72])
		if accountID == p.CoinVault.String() {
			p.ReserveCoin = cosmath.NewIntFromUint64(balance)
		} else {
			p.ReservePc = cosmath.NewIntFromUint64(balance)
		}
		return nil
	default:
		return fmt.Errorf("account %s does not belong to amm %s", accountID, p.AmmId)
	}
}

// quoteWithReserves applies the swap fee and the constant-product formula.
// Pools predating the fee fields report a zero denominator; those fall back
// to the protocol default of 25 bps.
func (p *RaydiumAmm) quoteWithReserves(amount, reserveIn, reserveOut cosmath.Int) (cosmath.Int, error) {
	if amount.IsZero() {
		return cosmath.ZeroInt(), nil
	}
	if reserveIn.IsNil() || reserveOut.IsNil() || reserveIn.IsZero() || reserveOut.IsZero() {
		return cosmath.ZeroInt(), fmt.Errorf("amm %s has empty reserves", p.AmmId)
	}

	feeNumerator, feeDenominator := p.SwapFeeNumerator, p.SwapFeeDenominator
	if feeDenominator == 0 {
		feeNumerator, feeDenominator = DefaultFeeNumerator, DefaultFeeDenominator
	}

	fee := amount.Mul(cosmath.NewIntFromUint64(feeNumerator)).Quo(cosmath.NewIntFromUint64(feeDenominator))
	amountInWithFee := amount.Sub(fee)

	// amountOut = (reserveOut * amountInWithFee) / (reserveIn + amountInWithFee)
	denominator := reserveIn.Add(amountInWithFee)
	amountOut := reserveOut.Mul(amountInWithFee).Quo(denominator)

	return amountOut, nil
}
