package aggregator

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Account flag bits. Every aggregator-owned account carries a u64 flag word;
// the type bit must match the expected layout or the account is rejected.
const (
	FlagInitialized   uint64 = 1 << 0
	FlagAmmInfo       uint64 = 1 << 1
	FlagDexMarketInfo uint64 = 1 << 2
)

const (
	// AmmInfoLen is the packed size of the AmmInfo account.
	AmmInfoLen = 281
	// DexMarketInfoLen is the packed size of the DexMarketInfo account.
	DexMarketInfoLen = 200
	// OutputDataLen is the packed size of the cumulative volume record.
	OutputDataLen = 80
)

// OutputData accumulates lifetime swap volume and collected fees for one
// token pair, in both directions.
type OutputData struct {
	TokenAInAmount  uint128.Uint128
	TokenAOutAmount uint128.Uint128
	TokenA2BFee     uint64
	TokenBInAmount  uint128.Uint128
	TokenBOutAmount uint128.Uint128
	TokenB2AFee     uint64
}

func (o *OutputData) decode(data []byte) {
	o.TokenAInAmount = uint128.FromBytes(data[0:16])
	o.TokenAOutAmount = uint128.FromBytes(data[16:32])
	o.TokenA2BFee = binary.LittleEndian.Uint64(data[32:40])
	o.TokenBInAmount = uint128.FromBytes(data[40:56])
	o.TokenBOutAmount = uint128.FromBytes(data[56:72])
	o.TokenB2AFee = binary.LittleEndian.Uint64(data[72:80])
}

func (o *OutputData) encode(data []byte) {
	o.TokenAInAmount.PutBytes(data[0:16])
	o.TokenAOutAmount.PutBytes(data[16:32])
	binary.LittleEndian.PutUint64(data[32:40], o.TokenA2BFee)
	o.TokenBInAmount.PutBytes(data[40:56])
	o.TokenBOutAmount.PutBytes(data[56:72])
	binary.LittleEndian.PutUint64(data[72:80], o.TokenB2AFee)
}

// AmmInfo mirrors the aggregator's token-pair account: the two vaults the
// program settles through, their mints, and the cumulative volume record.
type AmmInfo struct {
	AccountFlags   uint64
	Nonce          uint8
	Owner          solana.PublicKey
	TokenProgramID solana.PublicKey
	TokenAVault    solana.PublicKey
	TokenAMint     solana.PublicKey
	TokenBVault    solana.PublicKey
	TokenBMint     solana.PublicKey
	Output         OutputData

	// Address the account was fetched from. Not part of the wire layout.
	Address solana.PublicKey
}

func (a *AmmInfo) Decode(data []byte) error {
	if len(data) != AmmInfoLen {
		return fmt.Errorf("invalid AmmInfo data length: expected %d, got %d", AmmInfoLen, len(data))
	}

	a.AccountFlags = binary.LittleEndian.Uint64(data[0:8])
	a.Nonce = data[8]

	offset := 9
	copy(a.Owner[:], data[offset:offset+32])
	offset += 32
	copy(a.TokenProgramID[:], data[offset:offset+32])
	offset += 32
	copy(a.TokenAVault[:], data[offset:offset+32])
	offset += 32
	copy(a.TokenAMint[:], data[offset:offset+32])
	offset += 32
	copy(a.TokenBVault[:], data[offset:offset+32])
	offset += 32
	copy(a.TokenBMint[:], data[offset:offset+32])
	offset += 32

	a.Output.decode(data[offset : offset+OutputDataLen])
	return nil
}

func (a *AmmInfo) Encode() []byte {
	data := make([]byte, AmmInfoLen)
	binary.LittleEndian.PutUint64(data[0:8], a.AccountFlags)
	data[8] = a.Nonce

	offset := 9
	copy(data[offset:offset+32], a.Owner[:])
	offset += 32
	copy(data[offset:offset+32], a.TokenProgramID[:])
	offset += 32
	copy(data[offset:offset+32], a.TokenAVault[:])
	offset += 32
	copy(data[offset:offset+32], a.TokenAMint[:])
	offset += 32
	copy(data[offset:offset+32], a.TokenBVault[:])
	offset += 32
	copy(data[offset:offset+32], a.TokenBMint[:])
	offset += 32

	a.Output.encode(data[offset : offset+OutputDataLen])
	return data
}

// Initialized reports whether the account carries the expected flag word.
func (a *AmmInfo) Initialized() bool {
	return a.AccountFlags == FlagInitialized|FlagAmmInfo
}

// FindVaultPair orients the pair's vaults for a swap starting from
// sourceMint. The returned destination mint identifies the output token.
func (a *AmmInfo) FindVaultPair(sourceMint solana.PublicKey) (vaultIn, vaultOut, destMint solana.PublicKey, err error) {
	switch sourceMint {
	case a.TokenAMint:
		return a.TokenAVault, a.TokenBVault, a.TokenBMint, nil
	case a.TokenBMint:
		return a.TokenBVault, a.TokenAVault, a.TokenAMint, nil
	default:
		return solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{},
			fmt.Errorf("mint %s is not part of pair %s/%s", sourceMint, a.TokenAMint, a.TokenBMint)
	}
}

// DexMarketInfo mirrors the aggregator's per-market account that pins an
// order-book market and its open-orders account to one AmmInfo pair.
type DexMarketInfo struct {
	AccountFlags uint64
	AmmInfo      solana.PublicKey
	DexProgramID solana.PublicKey
	Market       solana.PublicKey
	PcMint       solana.PublicKey
	CoinMint     solana.PublicKey
	OpenOrders   solana.PublicKey

	Address solana.PublicKey
}

func (m *DexMarketInfo) Decode(data []byte) error {
	if len(data) != DexMarketInfoLen {
		return fmt.Errorf("invalid DexMarketInfo data length: expected %d, got %d", DexMarketInfoLen, len(data))
	}

	m.AccountFlags = binary.LittleEndian.Uint64(data[0:8])

	offset := 8
	copy(m.AmmInfo[:], data[offset:offset+32])
	offset += 32
	copy(m.DexProgramID[:], data[offset:offset+32])
	offset += 32
	copy(m.Market[:], data[offset:offset+32])
	offset += 32
	copy(m.PcMint[:], data[offset:offset+32])
	offset += 32
	copy(m.CoinMint[:], data[offset:offset+32])
	offset += 32
	copy(m.OpenOrders[:], data[offset:offset+32])
	return nil
}

func (m *DexMarketInfo) Encode() []byte {
	data := make([]byte, DexMarketInfoLen)
	binary.LittleEndian.PutUint64(data[0:8], m.AccountFlags)

	offset := 8
	copy(data[offset:offset+32], m.AmmInfo[:])
	offset += 32
	copy(data[offset:offset+32], m.DexProgramID[:])
	offset += 32
	copy(data[offset:offset+32], m.Market[:])
	offset += 32
	copy(data[offset:offset+32], m.PcMint[:])
	offset += 32
	copy(data[offset:offset+32], m.CoinMint[:])
	offset += 32
	copy(data[offset:offset+32], m.OpenOrders[:])
	return data
}

func (m *DexMarketInfo) Initialized() bool {
	return m.AccountFlags == FlagInitialized|FlagDexMarketInfo
}

// FindAuthority derives the PDA the program signs vault transfers with. The
// returned bump seed is stored as the nonce in the AmmInfo account.
func FindAuthority(ammInfo solana.PublicKey, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{ammInfo.Bytes()}, programID)
}

// AuthorityForNonce recomputes the authority from a stored nonce.
func AuthorityForNonce(ammInfo solana.PublicKey, nonce uint8, programID solana.PublicKey) (solana.PublicKey, error) {
	authority, err := solana.CreateProgramAddress([][]byte{ammInfo.Bytes(), {nonce}}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid authority nonce %d for %s: %w", nonce, ammInfo, err)
	}
	return authority, nil
}
