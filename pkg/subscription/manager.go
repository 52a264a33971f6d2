package subscription

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solagg/pkg"
	"solagg/pkg/pool/raydium"
	"solagg/pkg/pool/saber"
	"solagg/pkg/pool/serum"
	"solagg/pkg/pool/splswap"
)

// PoolUpdateHandler is called when a pool's state is updated
type PoolUpdateHandler func(poolID string, data []byte, slot uint64)

// SubscriptionManager keeps pool state fresh by subscribing to the pool
// account and its vaults over WebSocket.
type SubscriptionManager struct {
	wsClient      *WebSocketClient
	poolCache     *PoolCache
	subscriptions map[string]uint64 // account address -> subscription ID
	handlers      map[string]PoolUpdateHandler
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	log           *zap.Logger
}

// NewSubscriptionManager creates a new subscription manager
func NewSubscriptionManager(ctx context.Context, wsURL string, logger *zap.Logger) (*SubscriptionManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	managerCtx, cancel := context.WithCancel(ctx)

	wsClient, err := NewWebSocketClient(managerCtx, wsURL, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create WebSocket client: %w", err)
	}

	manager := &SubscriptionManager{
		wsClient:      wsClient,
		poolCache:     NewPoolCache(logger),
		subscriptions: make(map[string]uint64),
		handlers:      make(map[string]PoolUpdateHandler),
		ctx:           managerCtx,
		cancel:        cancel,
		log:           logger,
	}

	return manager, nil
}

// SubscribePool subscribes to updates for a specific pool
func (sm *SubscriptionManager) SubscribePool(pool pkg.Pool) error {
	poolID := pool.GetID()

	sm.mu.Lock()
	if _, exists := sm.subscriptions[poolID]; exists {
		sm.mu.Unlock()
		return nil
	}
	sm.mu.Unlock()

	accounts := sm.getPoolAccounts(pool)
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts to subscribe for pool %s", poolID)
	}

	sm.log.Debug("subscribing to pool accounts",
		zap.String("pool", poolID),
		zap.Int("accounts", len(accounts)))

	for _, account := range accounts {
		handler := func(accountID string, data []byte, slot uint64) {
			sm.handleAccountUpdate(poolID, accountID, data, slot)
		}

		subID, err := sm.wsClient.SubscribeAccount(account, handler)
		if err != nil {
			sm.log.Warn("failed to subscribe to account",
				zap.String("account", account),
				zap.String("pool", poolID),
				zap.Error(err))
			continue
		}

		sm.mu.Lock()
		sm.subscriptions[account] = subID
		sm.mu.Unlock()
	}

	sm.poolCache.SetPool(poolID, pool)

	return nil
}

// UnsubscribePool unsubscribes from a pool's updates
func (sm *SubscriptionManager) UnsubscribePool(poolID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var subsToRemove []string
	for account, subID := range sm.subscriptions {
		if err := sm.wsClient.Unsubscribe(subID); err != nil {
			sm.log.Warn("failed to unsubscribe",
				zap.String("account", account),
				zap.Error(err))
		}
		subsToRemove = append(subsToRemove, account)
	}

	for _, account := range subsToRemove {
		delete(sm.subscriptions, account)
	}

	sm.poolCache.RemovePool(poolID)

	return nil
}

// handleAccountUpdate processes account updates from WebSocket
func (sm *SubscriptionManager) handleAccountUpdate(poolID, accountID string, base64Data []byte, slot uint64) {
	data, err := base64.StdEncoding.DecodeString(string(base64Data))
	if err != nil {
		sm.log.Warn("failed to decode account data",
			zap.String("account", accountID),
			zap.Error(err))
		return
	}

	if err := sm.poolCache.UpdatePoolAccount(poolID, accountID, data, slot); err != nil {
		return
	}

	sm.mu.RLock()
	if handler, exists := sm.handlers[poolID]; exists {
		handler(poolID, data, slot)
	}
	sm.mu.RUnlock()
}

// RegisterHandler registers a custom handler for pool updates
func (sm *SubscriptionManager) RegisterHandler(poolID string, handler PoolUpdateHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.handlers[poolID] = handler
}

// GetPool returns a pool from the cache
func (sm *SubscriptionManager) GetPool(poolID string) (pkg.Pool, bool) {
	return sm.poolCache.GetPool(poolID)
}

// GetAllPools returns all cached pools
func (sm *SubscriptionManager) GetAllPools() []pkg.Pool {
	return sm.poolCache.GetAllPools()
}

// IsConnected returns whether the WebSocket is connected
func (sm *SubscriptionManager) IsConnected() bool {
	return sm.wsClient.IsConnected()
}

// Close closes the subscription manager
func (sm *SubscriptionManager) Close() error {
	sm.cancel()

	sm.mu.RLock()
	poolIDs := make([]string, 0, len(sm.subscriptions))
	for account := range sm.subscriptions {
		poolIDs = append(poolIDs, account)
	}
	sm.mu.RUnlock()

	for _, poolID := range poolIDs {
		sm.UnsubscribePool(poolID)
	}

	return sm.wsClient.Close()
}

// getPoolAccounts lists the accounts whose updates affect a pool's quotes:
// the pool account itself plus its vaults.
func (sm *SubscriptionManager) getPoolAccounts(pool pkg.Pool) []string {
	accounts := []string{pool.GetID()}

	switch p := pool.(type) {
	case *splswap.SplSwapPool:
		accounts = append(accounts, p.TokenAccountA.String(), p.TokenAccountB.String())
	case *saber.StableSwapPool:
		accounts = append(accounts, p.TokenAccountA.String(), p.TokenAccountB.String())
	case *raydium.RaydiumAmm:
		accounts = append(accounts, p.CoinVault.String(), p.PcVault.String())
	case *serum.Market:
		accounts = append(accounts, p.BaseVault.String(), p.QuoteVault.String())
	}

	return accounts
}

// Stats returns subscription statistics
func (sm *SubscriptionManager) Stats() map[string]interface{} {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return map[string]interface{}{
		"subscriptions": len(sm.subscriptions),
		"cachedPools":   sm.poolCache.Size(),
		"connected":     sm.wsClient.IsConnected(),
		"timestamp":     time.Now().Format(time.RFC3339),
	}
}
