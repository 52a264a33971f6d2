package subscription

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solagg/pkg/pool/splswap"
)

// fakeWSNode is a minimal accountSubscribe endpoint. It answers every
// subscribe with a subscription ID derived from the request ID and exposes
// the connection so the test can push notifications once the client is
// fully subscribed.
type fakeWSNode struct {
	srv    *httptest.Server
	connCh chan *websocket.Conn
	subIDs chan subscribed

	writeMu sync.Mutex
}

type subscribed struct {
	account string
	subID   uint64
}

func newFakeWSNode(t *testing.T) *fakeWSNode {
	t.Helper()

	node := &fakeWSNode{
		connCh: make(chan *websocket.Conn, 1),
		subIDs: make(chan subscribed, 16),
	}

	upgrader := websocket.Upgrader{}
	node.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		node.connCh <- conn

		for {
			var req RPCRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Method != "accountSubscribe" {
				continue
			}

			subID := req.ID + 100
			node.writeMu.Lock()
			err = conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  subID,
			})
			node.writeMu.Unlock()
			if err != nil {
				return
			}

			if account, ok := req.Params[0].(string); ok {
				node.subIDs <- subscribed{account: account, subID: subID}
			}
		}
	}))
	t.Cleanup(node.srv.Close)

	return node
}

func (n *fakeWSNode) url() string {
	return "ws" + strings.TrimPrefix(n.srv.URL, "http")
}

// notify pushes an accountNotification carrying base64 account data.
func (n *fakeWSNode) notify(t *testing.T, conn *websocket.Conn, subID uint64, slot uint64, data []byte) {
	t.Helper()

	note := NotificationMessage{
		JSONRPC: "2.0",
		Method:  "accountNotification",
		Params: NotificationParams{
			Result: AccountNotification{
				Context: Context{Slot: slot},
				Value: AccountValue{
					Data:     []interface{}{base64.StdEncoding.EncodeToString(data), "base64"},
					Lamports: 1,
					Owner:    solana.TokenProgramID.String(),
				},
			},
			Subscription: subID,
		},
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()
	require.NoError(t, conn.WriteJSON(note))
}

func TestManagerAppliesPushedVaultBalance(t *testing.T) {
	pool := &splswap.SplSwapPool{
		PoolId:              solana.NewWallet().PublicKey(),
		TokenAccountA:       solana.NewWallet().PublicKey(),
		TokenAccountB:       solana.NewWallet().PublicKey(),
		MintA:               solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"),
		MintB:               solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		TradeFeeNumerator:   25,
		TradeFeeDenominator: 10000,
		ReserveA:            cosmath.ZeroInt(),
		ReserveB:            cosmath.ZeroInt(),
	}

	node := newFakeWSNode(t)

	manager, err := NewSubscriptionManager(context.Background(), node.url(), zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	updated := make(chan uint64, 1)
	manager.RegisterHandler(pool.GetID(), func(poolID string, data []byte, slot uint64) {
		select {
		case updated <- slot:
		default:
		}
	})

	require.NoError(t, manager.SubscribePool(pool))

	conn := <-node.connCh

	// The manager subscribes the pool account and both vaults.
	var vaultASubID uint64
	for i := 0; i < 3; i++ {
		select {
		case sub := <-node.subIDs:
			if sub.account == pool.TokenAccountA.String() {
				vaultASubID = sub.subID
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for subscribe requests")
		}
	}
	require.NotZero(t, vaultASubID)

	// SPL token account layout: amount is a u64 at offset 64.
	vaultData := make([]byte, 165)
	binary.LittleEndian.PutUint64(vaultData[64:72], 123_456_789)
	node.notify(t, conn, vaultASubID, 42, vaultData)

	select {
	case slot := <-updated:
		require.Equal(t, uint64(42), slot)
	case <-time.After(5 * time.Second):
		t.Fatal("no pool update received")
	}

	cached, ok := manager.GetPool(pool.GetID())
	require.True(t, ok)
	refreshed := cached.(*splswap.SplSwapPool)
	require.Equal(t, cosmath.NewInt(123_456_789), refreshed.ReserveA)
	require.True(t, refreshed.ReserveB.IsZero())
}

func TestManagerIgnoresMalformedAccountData(t *testing.T) {
	pool := &splswap.SplSwapPool{
		PoolId:        solana.NewWallet().PublicKey(),
		TokenAccountA: solana.NewWallet().PublicKey(),
		TokenAccountB: solana.NewWallet().PublicKey(),
		ReserveA:      cosmath.NewInt(777),
		ReserveB:      cosmath.ZeroInt(),
	}

	node := newFakeWSNode(t)

	manager, err := NewSubscriptionManager(context.Background(), node.url(), zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	require.NoError(t, manager.SubscribePool(pool))

	conn := <-node.connCh

	var vaultASubID uint64
	for i := 0; i < 3; i++ {
		select {
		case sub := <-node.subIDs:
			if sub.account == pool.TokenAccountA.String() {
				vaultASubID = sub.subID
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for subscribe requests")
		}
	}

	updated := make(chan struct{}, 1)
	manager.RegisterHandler(pool.GetID(), func(poolID string, data []byte, slot uint64) {
		select {
		case updated <- struct{}{}:
		default:
		}
	})

	// Too short for a token account; the update must be dropped without
	// touching the cached reserves.
	node.notify(t, conn, vaultASubID, 7, make([]byte, 10))

	// Follow with a valid update so the test can observe that processing
	// continued past the bad one.
	vaultData := make([]byte, 165)
	binary.LittleEndian.PutUint64(vaultData[64:72], 999)
	node.notify(t, conn, vaultASubID, 8, vaultData)

	select {
	case <-updated:
	case <-time.After(5 * time.Second):
		t.Fatal("no pool update received")
	}

	cached, ok := manager.GetPool(pool.GetID())
	require.True(t, ok)
	require.Equal(t, cosmath.NewInt(999), cached.(*splswap.SplSwapPool).ReserveA)
}

func TestManagerStats(t *testing.T) {
	pool := &splswap.SplSwapPool{
		PoolId:        solana.NewWallet().PublicKey(),
		TokenAccountA: solana.NewWallet().PublicKey(),
		TokenAccountB: solana.NewWallet().PublicKey(),
	}

	node := newFakeWSNode(t)

	manager, err := NewSubscriptionManager(context.Background(), node.url(), zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	require.NoError(t, manager.SubscribePool(pool))

	stats := manager.Stats()
	require.Equal(t, 3, stats["subscriptions"])
	require.Equal(t, 1, stats["cachedPools"])
	require.Equal(t, true, stats["connected"])
}
