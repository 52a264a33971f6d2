package aggregator

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"solagg/pkg/pool/raydium"
	"solagg/pkg/pool/saber"
	"solagg/pkg/pool/serum"
	"solagg/pkg/pool/splswap"
	"solagg/pkg/sol"
)

// Client builds and submits aggregator transactions against one program
// deployment.
type Client struct {
	sol       *sol.Client
	programID solana.PublicKey
	log       *zap.Logger
}

func NewClient(solClient *sol.Client, programID solana.PublicKey, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		sol:       solClient,
		programID: programID,
		log:       logger,
	}
}

func (c *Client) ProgramID() solana.PublicKey {
	return c.programID
}

// FetchAmmInfo fetches and decodes the pair account at address. The account
// must exist, be owned by the aggregator program, and carry the AmmInfo flag
// word.
func (c *Client) FetchAmmInfo(ctx context.Context, address solana.PublicKey) (*AmmInfo, error) {
	result, err := c.sol.GetAccountInfoWithOpts(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch amm info %s: %w", address, err)
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("amm info account %s not found", address)
	}
	if !result.Value.Owner.Equals(c.programID) {
		return nil, fmt.Errorf("account %s is owned by %s, not the aggregator program", address, result.Value.Owner)
	}

	info := &AmmInfo{Address: address}
	if err := info.Decode(result.Value.Data.GetBinary()); err != nil {
		return nil, err
	}
	if !info.Initialized() {
		return nil, fmt.Errorf("amm info account %s is not initialized", address)
	}
	return info, nil
}

// FetchDexMarketInfo fetches and decodes the market-binding account at
// address.
func (c *Client) FetchDexMarketInfo(ctx context.Context, address solana.PublicKey) (*DexMarketInfo, error) {
	result, err := c.sol.GetAccountInfoWithOpts(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dex market info %s: %w", address, err)
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("dex market info account %s not found", address)
	}
	if !result.Value.Owner.Equals(c.programID) {
		return nil, fmt.Errorf("account %s is owned by %s, not the aggregator program", address, result.Value.Owner)
	}

	info := &DexMarketInfo{Address: address}
	if err := info.Decode(result.Value.Data.GetBinary()); err != nil {
		return nil, err
	}
	if !info.Initialized() {
		return nil, fmt.Errorf("dex market info account %s is not initialized", address)
	}
	return info, nil
}

// InitializeAmmInfo creates and initializes a pair account for the two
// vaults. ammInfoAccount is a fresh keypair; the vaults must already be
// token accounts whose owner is the derived authority.
func (c *Client) InitializeAmmInfo(
	ctx context.Context,
	wallet solana.PrivateKey,
	ammInfoAccount solana.PrivateKey,
	tokenAVault, tokenAMint, tokenBVault, tokenBMint solana.PublicKey,
) (solana.Signature, error) {
	ammInfoPubkey := ammInfoAccount.PublicKey()

	rent, err := c.sol.GetMinimumBalanceForRentExemption(ctx, AmmInfoLen)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to fetch rent exemption: %w", err)
	}

	authority, nonce, err := FindAuthority(ammInfoPubkey, c.programID)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to derive authority for %s: %w", ammInfoPubkey, err)
	}

	createAccount := system.NewCreateAccountInstruction(
		rent,
		AmmInfoLen,
		c.programID,
		wallet.PublicKey(),
		ammInfoPubkey,
	).Build()

	initialize := c.buildInitializeAmmInfo(ammInfoPubkey, authority, nonce,
		wallet.PublicKey(), tokenAVault, tokenAMint, tokenBVault, tokenBMint)

	c.log.Info("initializing amm info",
		zap.String("amm_info", ammInfoPubkey.String()),
		zap.String("authority", authority.String()),
		zap.Uint8("nonce", nonce))

	return c.submit(ctx,
		[]solana.Instruction{createAccount, initialize},
		[]solana.PrivateKey{wallet, ammInfoAccount},
		wallet.PublicKey())
}

// InitDexMarketOpenOrders creates a DexMarketInfo account binding an
// order-book market and a fresh open-orders account to an existing pair.
func (c *Client) InitDexMarketOpenOrders(
	ctx context.Context,
	wallet solana.PrivateKey,
	ammInfo *AmmInfo,
	dexMarketAccount solana.PrivateKey,
	openOrders solana.PublicKey,
	market *serum.Market,
) (solana.Signature, error) {
	dexMarketPubkey := dexMarketAccount.PublicKey()

	rent, err := c.sol.GetMinimumBalanceForRentExemption(ctx, DexMarketInfoLen)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to fetch rent exemption: %w", err)
	}

	authority, err := AuthorityForNonce(ammInfo.Address, ammInfo.Nonce, c.programID)
	if err != nil {
		return solana.Signature{}, err
	}

	createAccount := system.NewCreateAccountInstruction(
		rent,
		DexMarketInfoLen,
		c.programID,
		wallet.PublicKey(),
		dexMarketPubkey,
	).Build()

	initialize := c.buildInitDexMarketOpenOrders(ammInfo, authority,
		dexMarketPubkey, market.OwnAddress, openOrders)

	c.log.Info("initializing dex market open orders",
		zap.String("dex_market_info", dexMarketPubkey.String()),
		zap.String("market", market.OwnAddress.String()))

	return c.submit(ctx,
		[]solana.Instruction{createAccount, initialize},
		[]solana.PrivateKey{wallet, dexMarketAccount},
		wallet.PublicKey())
}

// UpdateDexMarketOpenOrders swaps the open-orders account a DexMarketInfo
// points at.
func (c *Client) UpdateDexMarketOpenOrders(
	ctx context.Context,
	wallet solana.PrivateKey,
	info *DexMarketInfo,
	newOpenOrders solana.PublicKey,
) (solana.Signature, error) {
	authority, _, err := FindAuthority(info.AmmInfo, c.programID)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to derive authority for %s: %w", info.AmmInfo, err)
	}

	update := c.buildUpdateDexMarketOpenOrders(info, authority, newOpenOrders)

	return c.submit(ctx, []solana.Instruction{update}, []solana.PrivateKey{wallet}, wallet.PublicKey())
}

// SwapFees sweeps the fees accumulated in a pair's vaults to the owner's
// token accounts.
func (c *Client) SwapFees(
	ctx context.Context,
	wallet solana.PrivateKey,
	ammInfo *AmmInfo,
	tokenAReceiver, tokenBReceiver solana.PublicKey,
) (solana.Signature, error) {
	authority, err := AuthorityForNonce(ammInfo.Address, ammInfo.Nonce, c.programID)
	if err != nil {
		return solana.Signature{}, err
	}

	sweep := c.buildSwapFees(ammInfo, authority, tokenAReceiver, tokenBReceiver)

	return c.submit(ctx, []solana.Instruction{sweep}, []solana.PrivateKey{wallet}, wallet.PublicKey())
}

// SwapParams describes a single-step swap: where the funds come from, where
// they go, and the amount bounds the program enforces.
type SwapParams struct {
	Wallet          solana.PrivateKey
	AmmInfo         *AmmInfo
	UserSource      solana.PublicKey
	UserDestination solana.PublicKey
	SourceMint      solana.PublicKey

	AmountIn         uint64
	ExpectAmountOut  uint64
	MinimumAmountOut uint64
}

// SwapSplTokenSwap swaps through an SPL token-swap pool. hostFee may be nil.
func (c *Client) SwapSplTokenSwap(ctx context.Context, params SwapParams, pool *splswap.SplSwapPool, hostFee *solana.PublicKey) (solana.Signature, error) {
	if err := c.checkVenuePair(params, pool.MintA, pool.MintB); err != nil {
		return solana.Signature{}, err
	}
	tail, err := pool.SwapAccounts(hostFee)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.swap(ctx, TagSwapSplTokenSwap, params, tail)
}

// SwapSerumDex swaps through an order-book market using the open-orders
// account pinned by the pair's DexMarketInfo.
func (c *Client) SwapSerumDex(ctx context.Context, params SwapParams, market *serum.Market, openOrders solana.PublicKey) (solana.Signature, error) {
	if err := c.checkVenuePair(params, market.BaseMint, market.QuoteMint); err != nil {
		return solana.Signature{}, err
	}
	tail, err := market.SwapAccounts(openOrders)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.swap(ctx, TagSwapSerumDex, params, tail)
}

// SwapStableSwap swaps through a saber stable-swap pool.
func (c *Client) SwapStableSwap(ctx context.Context, params SwapParams, pool *saber.StableSwapPool) (solana.Signature, error) {
	if err := c.checkVenuePair(params, pool.MintA, pool.MintB); err != nil {
		return solana.Signature{}, err
	}
	tail, err := pool.SwapAccounts(params.SourceMint)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.swap(ctx, TagSwapStableSwap, params, tail)
}

// SwapRaydium swaps through a raydium amm. Old pools still require their
// target-orders account; newer ones accept the shortened variant.
func (c *Client) SwapRaydium(ctx context.Context, params SwapParams, amm *raydium.RaydiumAmm, market *serum.Market, withTargetOrders bool) (solana.Signature, error) {
	if err := c.checkVenuePair(params, amm.CoinMint, amm.PcMint); err != nil {
		return solana.Signature{}, err
	}
	tail, err := amm.SwapAccounts(market, withTargetOrders)
	if err != nil {
		return solana.Signature{}, err
	}
	tag := TagSwapRaydium
	if !withTargetOrders {
		tag = TagSwapRaydiumNoTargetOrders
	}
	return c.swap(ctx, tag, params, tail)
}

// TwoStepLeg is one leg of a two-step swap: the venue kind and the venue's
// account tail.
type TwoStepLeg struct {
	Exchanger uint8
	Tail      solana.AccountMetaSlice
}

// SwapTwoSteps swaps source -> destination atomically through two venues.
// params.AmmInfo is the pair the second leg settles through; the
// intermediate amount accumulates in one of its vaults between the legs, so
// the user needs no token account for the intermediate mint.
func (c *Client) SwapTwoSteps(ctx context.Context, params SwapParams, step1, step2 TwoStepLeg) (solana.Signature, error) {
	inst, err := c.buildTwoStepSwap(params, step1, step2)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.submit(ctx, []solana.Instruction{inst}, []solana.PrivateKey{params.Wallet}, params.Wallet.PublicKey())
}

// checkVenuePair rejects swaps whose venue trades a different pair than the
// aggregator account settles. Errors surface before any transaction is
// built.
func (c *Client) checkVenuePair(params SwapParams, venueMintA, venueMintB solana.PublicKey) (err error) {
	_, _, destMint, err := params.AmmInfo.FindVaultPair(params.SourceMint)
	if err != nil {
		return err
	}
	sameOrder := venueMintA.Equals(params.SourceMint) && venueMintB.Equals(destMint)
	reversed := venueMintB.Equals(params.SourceMint) && venueMintA.Equals(destMint)
	if !sameOrder && !reversed {
		return fmt.Errorf("venue trades %s/%s, pair settles %s/%s",
			venueMintA, venueMintB, params.SourceMint, destMint)
	}
	return nil
}

func (c *Client) swap(ctx context.Context, tag uint8, params SwapParams, tail solana.AccountMetaSlice) (solana.Signature, error) {
	inst, err := c.buildSwap(tag, params, tail)
	if err != nil {
		return solana.Signature{}, err
	}

	c.log.Info("submitting swap",
		zap.Uint8("tag", tag),
		zap.String("amm_info", params.AmmInfo.Address.String()),
		zap.Uint64("amount_in", params.AmountIn),
		zap.Uint64("minimum_out", params.MinimumAmountOut))

	return c.submit(ctx, []solana.Instruction{inst}, []solana.PrivateKey{params.Wallet}, params.Wallet.PublicKey())
}

// buildSwap assembles a single-step swap instruction: the fixed user prefix
// followed by the venue tail.
func (c *Client) buildSwap(tag uint8, params SwapParams, tail solana.AccountMetaSlice) (*SwapInstruction, error) {
	prefix, err := c.swapPrefix(params)
	if err != nil {
		return nil, err
	}

	inst := &SwapInstruction{
		Tag:              tag,
		AmountIn:         params.AmountIn,
		ExpectAmountOut:  params.ExpectAmountOut,
		MinimumAmountOut: params.MinimumAmountOut,
		programID:        c.programID,
	}
	inst.AccountMetaSlice = append(prefix, tail...)
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst, nil
}

// buildTwoStepSwap assembles the two-step instruction: a shortened user
// prefix, the first venue's tail, then the settling pair's accounts and the
// second venue's tail. The program routes the first leg's output into the
// settling pair itself, so the first leg carries no pair accounts and the
// payload counts cover only the venue tails.
func (c *Client) buildTwoStepSwap(params SwapParams, step1, step2 TwoStepLeg) (*TwoStepSwapInstruction, error) {
	if len(step1.Tail) == 0 || len(step2.Tail) == 0 {
		return nil, fmt.Errorf("two-step swap legs need venue accounts")
	}
	authority, err := AuthorityForNonce(params.AmmInfo.Address, params.AmmInfo.Nonce, c.programID)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(params.UserSource, true, false),
		solana.NewAccountMeta(params.UserDestination, true, false),
		solana.NewAccountMeta(params.Wallet.PublicKey(), false, true),
		solana.NewAccountMeta(TokenProgramID, false, false),
	}
	metas = append(metas, step1.Tail...)
	metas = append(metas,
		solana.NewAccountMeta(params.AmmInfo.Address, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(params.AmmInfo.TokenAVault, true, false),
		solana.NewAccountMeta(params.AmmInfo.TokenBVault, true, false),
	)
	metas = append(metas, step2.Tail...)

	inst := &TwoStepSwapInstruction{
		AmountIn:         params.AmountIn,
		ExpectAmountOut:  params.ExpectAmountOut,
		MinimumAmountOut: params.MinimumAmountOut,
		Step1:            ExchangeStep{Exchanger: step1.Exchanger, AccountsCount: uint8(len(step1.Tail))},
		Step2:            ExchangeStep{Exchanger: step2.Exchanger, AccountsCount: uint8(len(step2.Tail))},
		programID:        c.programID,
	}
	inst.AccountMetaSlice = metas
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst, nil
}

func (c *Client) buildInitializeAmmInfo(
	ammInfo, authority solana.PublicKey,
	nonce uint8,
	owner, tokenAVault, tokenAMint, tokenBVault, tokenBMint solana.PublicKey,
) *InitializeInstruction {
	inst := &InitializeInstruction{
		Tag:       TagInitializeAmmInfo,
		Nonce:     nonce,
		programID: c.programID,
	}
	inst.AccountMetaSlice = solana.AccountMetaSlice{
		solana.NewAccountMeta(ammInfo, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(tokenAVault, false, false),
		solana.NewAccountMeta(tokenAMint, false, false),
		solana.NewAccountMeta(tokenBVault, false, false),
		solana.NewAccountMeta(tokenBMint, false, false),
		solana.NewAccountMeta(TokenProgramID, false, false),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst
}

func (c *Client) buildInitDexMarketOpenOrders(
	ammInfo *AmmInfo,
	authority, dexMarketInfo, market, openOrders solana.PublicKey,
) *InitializeInstruction {
	inst := &InitializeInstruction{
		Tag:       TagInitDexMarketOpenOrders,
		Nonce:     ammInfo.Nonce,
		programID: c.programID,
	}
	inst.AccountMetaSlice = solana.AccountMetaSlice{
		solana.NewAccountMeta(ammInfo.Address, false, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(dexMarketInfo, true, false),
		solana.NewAccountMeta(market, false, false),
		solana.NewAccountMeta(openOrders, true, false),
		solana.NewAccountMeta(SysvarRent, false, false),
		solana.NewAccountMeta(serum.SerumDexProgramID, false, false),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst
}

func (c *Client) buildUpdateDexMarketOpenOrders(
	info *DexMarketInfo,
	authority, newOpenOrders solana.PublicKey,
) *PlainInstruction {
	inst := &PlainInstruction{
		Tag:       TagUpdateDexMarketOpenOrders,
		programID: c.programID,
	}
	inst.AccountMetaSlice = solana.AccountMetaSlice{
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(info.AmmInfo, false, false),
		solana.NewAccountMeta(info.Address, true, false),
		solana.NewAccountMeta(info.Market, false, false),
		solana.NewAccountMeta(newOpenOrders, true, false),
		solana.NewAccountMeta(SysvarRent, false, false),
		solana.NewAccountMeta(info.DexProgramID, false, false),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst
}

func (c *Client) buildSwapFees(
	ammInfo *AmmInfo,
	authority, tokenAReceiver, tokenBReceiver solana.PublicKey,
) *PlainInstruction {
	inst := &PlainInstruction{
		Tag:       TagSwapFees,
		programID: c.programID,
	}
	inst.AccountMetaSlice = solana.AccountMetaSlice{
		solana.NewAccountMeta(ammInfo.Address, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(ammInfo.TokenAVault, true, false),
		solana.NewAccountMeta(ammInfo.TokenBVault, true, false),
		solana.NewAccountMeta(TokenProgramID, false, false),
		solana.NewAccountMeta(tokenAReceiver, true, false),
		solana.NewAccountMeta(tokenBReceiver, true, false),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst
}

// swapPrefix builds the fixed leading accounts every single-step swap
// shares.
func (c *Client) swapPrefix(params SwapParams) (solana.AccountMetaSlice, error) {
	if _, _, _, err := params.AmmInfo.FindVaultPair(params.SourceMint); err != nil {
		return nil, err
	}
	authority, err := AuthorityForNonce(params.AmmInfo.Address, params.AmmInfo.Nonce, c.programID)
	if err != nil {
		return nil, err
	}

	return solana.AccountMetaSlice{
		solana.NewAccountMeta(params.UserSource, true, false),
		solana.NewAccountMeta(params.UserDestination, true, false),
		solana.NewAccountMeta(params.Wallet.PublicKey(), false, true),
		solana.NewAccountMeta(TokenProgramID, false, false),
		solana.NewAccountMeta(params.AmmInfo.Address, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(params.AmmInfo.TokenAVault, true, false),
		solana.NewAccountMeta(params.AmmInfo.TokenBVault, true, false),
	}, nil
}

func (c *Client) submit(ctx context.Context, instructions []solana.Instruction, signers []solana.PrivateKey, payer solana.PublicKey) (solana.Signature, error) {
	blockhash, err := c.sol.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to fetch blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.sol.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.log.Debug("transaction sent", zap.String("signature", sig.String()))

	if err := c.sol.WaitForConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}
