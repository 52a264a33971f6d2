package aggregator

import "github.com/gagliardetto/solana-go"

// Default aggregator program id. Deployments can override it through
// configuration; every Client carries its own copy.
const DEFAULT_PROGRAM_ID = "BCNCGidGAvAbv9FeyF5va1niKXxaaVRDwrNwPFtWoAs5"

var (
	DefaultProgramID = solana.MustPublicKeyFromBase58(DEFAULT_PROGRAM_ID)

	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	SysvarRent     = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	SysvarClock    = solana.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")
	SystemProgram  = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
)
