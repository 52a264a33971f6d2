package serum

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"solagg/pkg"
	"solagg/pkg/sol"
)

// Side of the order book a swap crosses.
type Side uint8

const (
	SideBid Side = 0
	SideAsk Side = 1
)

// Market represents a Serum DEX market account.
type Market struct {
	AccountFlags           uint64
	OwnAddress             solana.PublicKey
	VaultSignerNonce       uint64
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	BaseVault              solana.PublicKey
	BaseDepositsTotal      uint64
	BaseFeesAccrued        uint64
	QuoteVault             solana.PublicKey
	QuoteDepositsTotal     uint64
	QuoteFeesAccrued       uint64
	QuoteDustThreshold     uint64
	RequestQueue           solana.PublicKey
	EventQueue             solana.PublicKey
	Bids                   solana.PublicKey
	Asks                   solana.PublicKey
	BaseLotSize            uint64
	QuoteLotSize           uint64
	FeeRateBps             uint64
	ReferrerRebatesAccrued uint64

	MarketId solana.PublicKey
}

func (m *Market) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameSerumDex
}

func (m *Market) GetProgramID() solana.PublicKey {
	return SerumDexProgramID
}

func (m *Market) GetID() string {
	return m.MarketId.String()
}

func (m *Market) GetTokens() (string, string) {
	return m.BaseMint.String(), m.QuoteMint.String()
}

func (m *Market) Decode(data []byte) error {
	if len(data) != MarketDataSize {
		return fmt.Errorf("data length mismatch for serum market: expected %d, got %d", MarketDataSize, len(data))
	}
	if !bytes.Equal(data[:5], headPadding) || !bytes.Equal(data[len(data)-7:], tailPadding) {
		return fmt.Errorf("serum market framing bytes missing")
	}

	offset := 5
	m.AccountFlags = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	copy(m.OwnAddress[:], data[offset:offset+32])
	offset += 32
	m.VaultSignerNonce = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	copy(m.BaseMint[:], data[offset:offset+32])
	offset += 32
	copy(m.QuoteMint[:], data[offset:offset+32])
	offset += 32
	copy(m.BaseVault[:], data[offset:offset+32])
	offset += 32
	m.BaseDepositsTotal = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	m.BaseFeesAccrued = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	copy(m.QuoteVault[:], data[offset:offset+32])
	offset += 32
	m.QuoteDepositsTotal = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	m.QuoteFeesAccrued = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	m.QuoteDustThreshold = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	copy(m.RequestQueue[:], data[offset:offset+32])
	offset += 32
	copy(m.EventQueue[:], data[offset:offset+32])
	offset += 32
	copy(m.Bids[:], data[offset:offset+32])
	offset += 32
	copy(m.Asks[:], data[offset:offset+32])
	offset += 32
	m.BaseLotSize = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	m.QuoteLotSize = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	m.FeeRateBps = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	m.ReferrerRebatesAccrued = binary.LittleEndian.Uint64(data[offset : offset+8])

	if m.AccountFlags != FlagInitialized|FlagMarket {
		return fmt.Errorf("serum market %s has unexpected account flags %d", m.MarketId, m.AccountFlags)
	}
	return nil
}

// address prefers the address embedded in the account data over the one the
// account was fetched from.
func (m *Market) address() solana.PublicKey {
	if !m.OwnAddress.IsZero() {
		return m.OwnAddress
	}
	return m.MarketId
}

// VaultSigner derives the vault owner from the stored nonce.
func (m *Market) VaultSigner() (solana.PublicKey, error) {
	nonce := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonce, m.VaultSignerNonce)

	market := m.address()
	signer, err := solana.CreateProgramAddress([][]byte{market.Bytes(), nonce}, SerumDexProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid vault signer nonce %d for market %s: %w", m.VaultSignerNonce, market, err)
	}
	return signer, nil
}

// FindSide reports which side of the book a swap from sourceMint crosses:
// selling the base token hits the bids (ask side order), anything else bids.
func (m *Market) FindSide(sourceMint solana.PublicKey) (Side, error) {
	switch sourceMint {
	case m.BaseMint:
		return SideAsk, nil
	case m.QuoteMint:
		return SideBid, nil
	default:
		return SideBid, fmt.Errorf("mint %s is not traded on market %s", sourceMint, m.MarketId)
	}
}

// SwapAccounts returns the account tail the aggregator expects after the
// fixed prefix for an order-book step.
func (m *Market) SwapAccounts(openOrders solana.PublicKey) (solana.AccountMetaSlice, error) {
	vaultSigner, err := m.VaultSigner()
	if err != nil {
		return nil, err
	}

	rent := solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(openOrders, true, false),
		solana.NewAccountMeta(m.address(), true, false),
		solana.NewAccountMeta(m.RequestQueue, true, false),
		solana.NewAccountMeta(m.EventQueue, true, false),
		solana.NewAccountMeta(m.Bids, true, false),
		solana.NewAccountMeta(m.Asks, true, false),
		solana.NewAccountMeta(m.BaseVault, true, false),
		solana.NewAccountMeta(m.QuoteVault, true, false),
		solana.NewAccountMeta(vaultSigner, false, false),
		solana.NewAccountMeta(rent, false, false),
		solana.NewAccountMeta(SerumDexProgramID, false, false),
	}, nil
}

// Quote is not supported for order-book markets: pricing requires walking
// the live book, which this client does not decode.
func (m *Market) Quote(ctx context.Context, solClient *sol.Client, inputMint string, amount cosmath.Int) (cosmath.Int, error) {
	return cosmath.ZeroInt(), fmt.Errorf("order book quoting not supported for market %s", m.MarketId)
}
