package router

import (
	"context"
	"fmt"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solagg/pkg"
	"solagg/pkg/sol"
)

type fakePool struct {
	id       string
	protocol pkg.ProtocolName
	out      math.Int
	err      error
}

func (p *fakePool) ProtocolName() pkg.ProtocolName     { return p.protocol }
func (p *fakePool) GetProgramID() solana.PublicKey     { return solana.SystemProgramID }
func (p *fakePool) GetID() string                      { return p.id }
func (p *fakePool) GetTokens() (string, string)        { return "mintA", "mintB" }
func (p *fakePool) Decode(data []byte) error           { return nil }
func (p *fakePool) Quote(ctx context.Context, solClient *sol.Client, inputMint string, amount math.Int) (math.Int, error) {
	if p.err != nil {
		return math.ZeroInt(), p.err
	}
	return p.out, nil
}

func TestGetBestPoolPicksMaxOutput(t *testing.T) {
	r := NewSimpleRouter(nil)
	r.Pools = []pkg.Pool{
		&fakePool{id: "a", protocol: pkg.ProtocolNameSplTokenSwap, out: math.NewInt(90)},
		&fakePool{id: "b", protocol: pkg.ProtocolNameRaydium, out: math.NewInt(110)},
		&fakePool{id: "c", protocol: pkg.ProtocolNameSaber, out: math.NewInt(100)},
	}

	best, out, err := r.GetBestPool(context.Background(), nil, "mintA", math.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "b", best.GetID())
	assert.Equal(t, math.NewInt(110), out)
}

func TestGetBestPoolSkipsFailedQuotes(t *testing.T) {
	r := NewSimpleRouter(nil)
	r.Pools = []pkg.Pool{
		&fakePool{id: "a", protocol: pkg.ProtocolNameRaydium, err: fmt.Errorf("empty reserves")},
		&fakePool{id: "b", protocol: pkg.ProtocolNameSplTokenSwap, out: math.NewInt(50)},
	}

	best, out, err := r.GetBestPool(context.Background(), nil, "mintA", math.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "b", best.GetID())
	assert.Equal(t, math.NewInt(50), out)
}

func TestGetBestPoolNoRoute(t *testing.T) {
	r := NewSimpleRouter(nil)

	_, _, err := r.GetBestPool(context.Background(), nil, "mintA", math.NewInt(1000))
	assert.Error(t, err)

	r.Pools = []pkg.Pool{
		&fakePool{id: "a", protocol: pkg.ProtocolNameRaydium, err: fmt.Errorf("boom")},
	}
	_, _, err = r.GetBestPool(context.Background(), nil, "mintA", math.NewInt(1000))
	assert.Error(t, err)
}

func TestFilterPoolsByProtocol(t *testing.T) {
	r := NewSimpleRouter(nil)
	r.Pools = []pkg.Pool{
		&fakePool{id: "a", protocol: pkg.ProtocolNameSplTokenSwap},
		&fakePool{id: "b", protocol: pkg.ProtocolNameRaydium},
		&fakePool{id: "c", protocol: pkg.ProtocolNameSaber},
	}

	// No filters passes everything through untouched.
	assert.Len(t, r.filterPools(nil, nil, 0, "mintA"), 3)

	only := r.filterPools([]string{string(pkg.ProtocolNameRaydium)}, nil, 0, "mintA")
	require.Len(t, only, 1)
	assert.Equal(t, "b", only[0].GetID())

	without := r.filterPools(nil, []string{string(pkg.ProtocolNameSaber)}, 0, "mintA")
	require.Len(t, without, 2)
	for _, p := range without {
		assert.NotEqual(t, "c", p.GetID())
	}
}

type fakeProtocol struct {
	name  pkg.ProtocolName
	pools []pkg.Pool
	err   error
}

func (f *fakeProtocol) ProtocolName() pkg.ProtocolName { return f.name }
func (f *fakeProtocol) FetchPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]pkg.Pool, error) {
	return f.pools, f.err
}
func (f *fakeProtocol) FetchPoolByID(ctx context.Context, poolId string) (pkg.Pool, error) {
	return nil, fmt.Errorf("not implemented")
}

func TestQueryAllPoolsSkipsFailedProtocols(t *testing.T) {
	r := NewSimpleRouter(nil,
		&fakeProtocol{name: pkg.ProtocolNameRaydium, err: fmt.Errorf("rpc timeout")},
		&fakeProtocol{name: pkg.ProtocolNameSplTokenSwap, pools: []pkg.Pool{
			&fakePool{id: "a", protocol: pkg.ProtocolNameSplTokenSwap},
		}},
	)

	require.NoError(t, r.QueryAllPools(context.Background(), "mintA", "mintB"))
	require.Len(t, r.Pools, 1)
	assert.Equal(t, "a", r.Pools[0].GetID())
}
