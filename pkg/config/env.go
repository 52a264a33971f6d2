package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from a .env file if it exists.
func LoadEnv(filename string) error {
	if _, err := os.Stat(filename); err != nil {
		// .env file is optional
		return nil
	}
	return godotenv.Load(filename)
}

// GetRPCEndpoints returns RPC endpoints from RPC_ENDPOINTS (comma separated).
func GetRPCEndpoints() []string {
	envEndpoints := os.Getenv("RPC_ENDPOINTS")
	if envEndpoints == "" {
		return nil
	}

	endpoints := strings.Split(envEndpoints, ",")
	result := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// GetWSEndpoint returns the websocket endpoint for account subscriptions.
func GetWSEndpoint() string {
	return strings.TrimSpace(os.Getenv("WS_ENDPOINT"))
}

// GetJitoEndpoint returns the optional Jito block-engine endpoint.
func GetJitoEndpoint() string {
	return strings.TrimSpace(os.Getenv("JITO_RPC"))
}

// GetAggregatorProgramID returns the aggregator program id override, or the
// empty string when the built-in default should be used.
func GetAggregatorProgramID() string {
	return strings.TrimSpace(os.Getenv("AGGREGATOR_PROGRAM_ID"))
}

// GetWallet loads the signing key, either base58 from WALLET_PRIVATE_KEY or
// from the keygen file named by WALLET_PATH.
func GetWallet() (solana.PrivateKey, error) {
	if raw := strings.TrimSpace(os.Getenv("WALLET_PRIVATE_KEY")); raw != "" {
		key, err := solana.PrivateKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid WALLET_PRIVATE_KEY: %w", err)
		}
		return key, nil
	}
	if path := strings.TrimSpace(os.Getenv("WALLET_PATH")); path != "" {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load wallet from %s: %w", path, err)
		}
		return key, nil
	}
	return nil, fmt.Errorf("no wallet configured: set WALLET_PRIVATE_KEY or WALLET_PATH")
}
