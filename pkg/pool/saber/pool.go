package saber

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"solagg/pkg"
	"solagg/pkg/sol"
)

var StableSwapProgramID = solana.MustPublicKeyFromBase58(SABER_STABLE_SWAP_PROGRAM_ID)

// Fees holds the fee schedule of a stable-swap pool.
type Fees struct {
	AdminTradeFeeNumerator      uint64
	AdminTradeFeeDenominator    uint64
	AdminWithdrawFeeNumerator   uint64
	AdminWithdrawFeeDenominator uint64
	TradeFeeNumerator           uint64
	TradeFeeDenominator         uint64
	WithdrawFeeNumerator        uint64
	WithdrawFeeDenominator      uint64
}

// StableSwapPool represents a saber stable-swap pool
type StableSwapPool struct {
	IsInitialized       bool
	IsPaused            bool
	Nonce               uint8
	InitialAmpFactor    uint64
	TargetAmpFactor     uint64
	StartRampTimestamp  int64
	StopRampTimestamp   int64
	FutureAdminDeadline int64
	FutureAdminKey      solana.PublicKey
	AdminKey            solana.PublicKey
	TokenAccountA       solana.PublicKey
	TokenAccountB       solana.PublicKey
	PoolMint            solana.PublicKey
	MintA               solana.PublicKey
	MintB               solana.PublicKey
	AdminFeeAccountA    solana.PublicKey
	AdminFeeAccountB    solana.PublicKey
	Fees                Fees

	PoolId solana.PublicKey

	// Pool reserves (fetched from token accounts)
	ReserveA cosmath.Int
	ReserveB cosmath.Int
}

func (p *StableSwapPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameSaber
}

func (p *StableSwapPool) GetProgramID() solana.PublicKey {
	return StableSwapProgramID
}

func (p *StableSwapPool) GetID() string {
	return p.PoolId.String()
}

func (p *StableSwapPool) GetTokens() (string, string) {
	return p.MintA.String(), p.MintB.String()
}

func (p *StableSwapPool) Decode(data []byte) error {
	if len(data) < SwapDataSize {
		return fmt.Errorf("data too short for stable swap pool: got %d bytes", len(data))
	}

	offset := 0

	p.IsInitialized = data[offset] == 1
	offset++
	p.IsPaused = data[offset] == 1
	offset++
	p.Nonce = data[offset]
	offset++

	// Amplification ramp
	p.InitialAmpFactor = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.TargetAmpFactor = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.StartRampTimestamp = int64(binary.LittleEndian.Uint64(data[offset : offset+8]))
	offset += 8
	p.StopRampTimestamp = int64(binary.LittleEndian.Uint64(data[offset : offset+8]))
	offset += 8

	// Admin handover
	p.FutureAdminDeadline = int64(binary.LittleEndian.Uint64(data[offset : offset+8]))
	offset += 8
	copy(p.FutureAdminKey[:], data[offset:offset+32])
	offset += 32
	copy(p.AdminKey[:], data[offset:offset+32])
	offset += 32

	// Vaults and mints
	copy(p.TokenAccountA[:], data[offset:offset+32])
	offset += 32
	copy(p.TokenAccountB[:], data[offset:offset+32])
	offset += 32
	copy(p.PoolMint[:], data[offset:offset+32])
	offset += 32
	copy(p.MintA[:], data[offset:offset+32])
	offset += 32
	copy(p.MintB[:], data[offset:offset+32])
	offset += 32
	copy(p.AdminFeeAccountA[:], data[offset:offset+32])
	offset += 32
	copy(p.AdminFeeAccountB[:], data[offset:offset+32])
	offset += 32

	// Fee schedule
	p.Fees.AdminTradeFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.Fees.AdminTradeFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.Fees.AdminWithdrawFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.Fees.AdminWithdrawFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.Fees.TradeFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.Fees.TradeFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.Fees.WithdrawFeeNumerator = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	p.Fees.WithdrawFeeDenominator = binary.LittleEndian.Uint64(data[offset : offset+8])

	if !p.IsInitialized {
		return fmt.Errorf("stable swap pool %s is not initialized", p.PoolId)
	}
	return nil
}

// Encode serializes the pool back into its on-chain layout.
func (p *StableSwapPool) Encode() []byte {
	data := make([]byte, SwapDataSize)

	if p.IsInitialized {
		data[0] = 1
	}
	if p.IsPaused {
		data[1] = 1
	}
	data[2] = p.Nonce

	binary.LittleEndian.PutUint64(data[3:11], p.InitialAmpFactor)
	binary.LittleEndian.PutUint64(data[11:19], p.TargetAmpFactor)
	binary.LittleEndian.PutUint64(data[19:27], uint64(p.StartRampTimestamp))
	binary.LittleEndian.PutUint64(data[27:35], uint64(p.StopRampTimestamp))
	binary.LittleEndian.PutUint64(data[35:43], uint64(p.FutureAdminDeadline))

	copy(data[43:75], p.FutureAdminKey[:])
	copy(data[75:107], p.AdminKey[:])
	copy(data[107:139], p.TokenAccountA[:])
	copy(data[139:171], p.TokenAccountB[:])
	copy(data[171:203], p.PoolMint[:])
	copy(data[203:235], p.MintA[:])
	copy(data[235:267], p.MintB[:])
	copy(data[267:299], p.AdminFeeAccountA[:])
	copy(data[299:331], p.AdminFeeAccountB[:])

	binary.LittleEndian.PutUint64(data[331:339], p.Fees.AdminTradeFeeNumerator)
	binary.LittleEndian.PutUint64(data[339:347], p.Fees.AdminTradeFeeDenominator)
	binary.LittleEndian.PutUint64(data[347:355], p.Fees.AdminWithdrawFeeNumerator)
	binary.LittleEndian.PutUint64(data[355:363], p.Fees.AdminWithdrawFeeDenominator)
	binary.LittleEndian.PutUint64(data[363:371], p.Fees.TradeFeeNumerator)
	binary.LittleEndian.PutUint64(data[371:379], p.Fees.TradeFeeDenominator)
	binary.LittleEndian.PutUint64(data[379:387], p.Fees.WithdrawFeeNumerator)
	binary.LittleEndian.PutUint64(data[387:395], p.Fees.WithdrawFeeDenominator)

	return data
}

// Authority derives the swap authority from the stored bump seed.
func (p *StableSwapPool) Authority() (solana.PublicKey, error) {
	authority, err := solana.CreateProgramAddress(
		[][]byte{p.PoolId.Bytes(), {p.Nonce}},
		StableSwapProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid swap authority nonce %d for %s: %w", p.Nonce, p.PoolId, err)
	}
	return authority, nil
}

// SwapAccounts returns the account tail the aggregator expects after the
// fixed prefix for a stable-swap step. The admin fee account is the one on
// the destination side of the trade.
func (p *StableSwapPool) SwapAccounts(sourceMint solana.PublicKey) (solana.AccountMetaSlice, error) {
	authority, err := p.Authority()
	if err != nil {
		return nil, err
	}

	var adminFee solana.PublicKey
	switch sourceMint {
	case p.MintA:
		adminFee = p.AdminFeeAccountB
	case p.MintB:
		adminFee = p.AdminFeeAccountA
	default:
		return nil, fmt.Errorf("mint %s is not traded by pool %s", sourceMint, p.PoolId)
	}

	return solana.AccountMetaSlice{
		solana.NewAccountMeta(p.PoolId, false, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(p.TokenAccountA, true, false),
		solana.NewAccountMeta(p.TokenAccountB, true, false),
		solana.NewAccountMeta(adminFee, true, false),
		solana.NewAccountMeta(solana.SysVarClockPubkey, false, false),
		solana.NewAccountMeta(StableSwapProgramID, false, false),
	}, nil
}

func (p *StableSwapPool) Quote(ctx context.Context, solClient *sol.Client, inputMint string, amount cosmath.Int) (cosmath.Int, error) {
	if p.IsPaused {
		return cosmath.ZeroInt(), fmt.Errorf("stable swap pool %s is paused", p.PoolId)
	}

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
func (p *StableSwapPool) UpdateFromAccountData(accountID string, data []byte) error {
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

// quoteWithReserves runs the stable curve and applies the trade fee to the
// output amount.
func (p *StableSwapPool) quoteWithReserves(amount, reserveIn, reserveOut cosmath.Int) (cosmath.Int, error) {
	if amount.IsZero() {
		return cosmath.ZeroInt(), nil
	}
	if reserveIn.IsNil() || reserveOut.IsNil() || reserveIn.IsZero() || reserveOut.IsZero() {
		return cosmath.ZeroInt(), fmt.Errorf("pool %s has empty reserves", p.PoolId)
	}
	if p.Fees.TradeFeeDenominator == 0 {
		return cosmath.ZeroInt(), fmt.Errorf("pool %s has zero fee denominator", p.PoolId)
	}

	leverage := new(big.Int).SetUint64(p.TargetAmpFactor * nCoins)
	x := reserveIn.BigInt()
	y := reserveOut.BigInt()

	d := computeD(leverage, x, y)
	if d.Sign() == 0 {
		return cosmath.ZeroInt(), fmt.Errorf("pool %s has empty reserves", p.PoolId)
	}

	newX := new(big.Int).Add(x, amount.BigInt())
	newY := computeY(leverage, newX, d)

	amountOut := new(big.Int).Sub(y, newY)
	if amountOut.Sign() <= 0 {
		return cosmath.ZeroInt(), nil
	}

	fee := new(big.Int).Mul(amountOut, new(big.Int).SetUint64(p.Fees.TradeFeeNumerator))
	fee.Quo(fee, new(big.Int).SetUint64(p.Fees.TradeFeeDenominator))
	amountOut.Sub(amountOut, fee)

	return cosmath.NewIntFromBigInt(amountOut), nil
}

// computeD finds the stable-swap invariant D for the given reserves by
// Newton iteration.
func computeD(leverage, amountA, amountB *big.Int) *big.Int {
	n := big.NewInt(nCoins)
	sum := new(big.Int).Add(amountA, amountB)
	if sum.Sign() == 0 {
		return big.NewInt(0)
	}

	d := new(big.Int).Set(sum)
	for i := 0; i < maxIterations; i++ {
		// dProduct = D^(n+1) / (n^n * prod(x))
		dProduct := new(big.Int).Set(d)
		dProduct.Mul(dProduct, d)
		dProduct.Quo(dProduct, new(big.Int).Mul(amountA, n))
		dProduct.Mul(dProduct, d)
		dProduct.Quo(dProduct, new(big.Int).Mul(amountB, n))

		dPrevious := new(big.Int).Set(d)

		// D = (leverage * sum + dProduct * n) * D /
		//     ((leverage - 1) * D + (n + 1) * dProduct)
		numerator := new(big.Int).Mul(leverage, sum)
		numerator.Add(numerator, new(big.Int).Mul(dProduct, n))
		numerator.Mul(numerator, d)

		denominator := new(big.Int).Sub(leverage, big.NewInt(1))
		denominator.Mul(denominator, d)
		denominator.Add(denominator, new(big.Int).Mul(new(big.Int).Add(n, big.NewInt(1)), dProduct))

		d.Quo(numerator, denominator)

		if almostEqual(d, dPrevious) {
			break
		}
	}
	return d
}

// computeY solves for the destination reserve that keeps the invariant D
// after the source reserve moves to x.
func computeY(leverage, x, d *big.Int) *big.Int {
	n := big.NewInt(nCoins)

	// c = D^(n+1) / (n^(2n) * x * leverage)
	c := new(big.Int).Mul(d, d)
	c.Quo(c, new(big.Int).Mul(x, n))
	c.Mul(c, d)
	c.Quo(c, new(big.Int).Mul(leverage, n))

	// b = x + D / leverage
	b := new(big.Int).Quo(d, leverage)
	b.Add(b, x)

	y := new(big.Int).Set(d)
	for i := 0; i < maxIterations; i++ {
		yPrevious := new(big.Int).Set(y)

		// y = (y^2 + c) / (2y + b - D)
		numerator := new(big.Int).Mul(y, y)
		numerator.Add(numerator, c)

		denominator := new(big.Int).Lsh(y, 1)
		denominator.Add(denominator, b)
		denominator.Sub(denominator, d)

		y.Quo(numerator, denominator)

		if almostEqual(y, yPrevious) {
			break
		}
	}
	return y
}

func almostEqual(a, b *big.Int) bool {
	diff := new(big.Int).Sub(a, b)
	return diff.CmpAbs(big.NewInt(1)) <= 0
}
