package discovery

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOwner = common.HexToAddress("0x1111111111111111111111111111111111111111")

func testFactories() []Factory {
	return []Factory{
		{Version: VersionV1, Address: common.HexToAddress("0x2E53A180a0F39Ff78cbc68a6792eFB0349B1F0c3")},
		{Version: VersionV11, Address: common.HexToAddress("0x74A2E1e0A1a7C21dAc8C23F513e472d6B1c6a7f1")},
	}
}

// chainBackend scripts deployment and ownership state per address.
type chainBackend struct {
	mu       sync.Mutex
	deployed map[common.Address]bool
	owned    map[common.Address]bool
	calls    int
}

func (b *chainBackend) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.deployed[account] {
		return []byte{0x60}, nil
	}
	return nil, nil
}

func (b *chainBackend) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	b.mu.Lock()
	b.calls++
	owned := msg.To != nil && b.owned[*msg.To]
	b.mu.Unlock()

	var raws [][]byte
	if owned {
		raws = [][]byte{testOwner.Bytes()}
	}
	typ, err := abi.NewType("bytes[]", "", nil)
	if err != nil {
		return nil, err
	}
	return abi.Arguments{{Type: typ}}.Pack(raws)
}

func (b *chainBackend) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return new(big.Int), nil
}

func (b *chainBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}

func (b *chainBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 0, nil
}

func (b *chainBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int), nil
}

func (b *chainBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return new(big.Int), nil
}

func TestDeriveAddress(t *testing.T) {
	factory := testFactories()[0]

	t.Run("is deterministic", func(t *testing.T) {
		a := DeriveAddress(factory, testOwner, 0)
		b := DeriveAddress(factory, testOwner, 0)
		assert.Equal(t, a, b)
	})

	t.Run("varies with index", func(t *testing.T) {
		assert.NotEqual(t, DeriveAddress(factory, testOwner, 0), DeriveAddress(factory, testOwner, 1))
	})

	t.Run("varies with owner", func(t *testing.T) {
		other := common.HexToAddress("0x2222222222222222222222222222222222222222")
		assert.NotEqual(t, DeriveAddress(factory, testOwner, 0), DeriveAddress(factory, other, 0))
	})

	t.Run("varies with factory generation", func(t *testing.T) {
		assert.NotEqual(t,
			DeriveAddress(testFactories()[0], testOwner, 0),
			DeriveAddress(testFactories()[1], testOwner, 0))
	})
}

func TestDiscoverViaRegistry(t *testing.T) {
	account := "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts", r.URL.Path)
		assert.Equal(t, testOwner.Hex(), r.URL.Query().Get("owner"))
		fmt.Fprintf(w, `{"accounts":[{"accountAddress":"%s"}]}`, account)
	}))
	defer server.Close()

	backend := &chainBackend{}
	service := NewService(NewRegistryClient(server.URL), backend, testFactories())

	records, err := service.Discover(context.Background(), testOwner)
	require.NoError(t, err)

	t.Run("registry answer is authoritative", func(t *testing.T) {
		require.Len(t, records, 1)
		assert.Equal(t, common.HexToAddress(account), records[0].Address)
		assert.True(t, records[0].Deployed)
		assert.True(t, records[0].OwnerConfirmed)
		assert.Equal(t, VersionUnknown, records[0].FactoryVersion)
	})

	t.Run("no on-chain probes were issued", func(t *testing.T) {
		assert.Zero(t, backend.calls)
	})
}

func TestDiscoverFallsBackOnChain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	hit := DeriveAddress(testFactories()[1], testOwner, 0)
	backend := &chainBackend{
		deployed: map[common.Address]bool{hit: true},
		owned:    map[common.Address]bool{hit: true},
	}
	service := NewService(NewRegistryClient(server.URL), backend, testFactories())

	records, err := service.Discover(context.Background(), testOwner)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, hit, records[0].Address)
	assert.Equal(t, VersionV11, records[0].FactoryVersion)
	assert.Equal(t, uint64(0), records[0].DerivationNonce)
}

func TestDiscoverOnChain(t *testing.T) {
	t.Run("collects every confirmed candidate in order", func(t *testing.T) {
		first := DeriveAddress(testFactories()[0], testOwner, 1)
		second := DeriveAddress(testFactories()[1], testOwner, 0)
		backend := &chainBackend{
			deployed: map[common.Address]bool{first: true, second: true},
			owned:    map[common.Address]bool{first: true, second: true},
		}
		service := NewService(nil, backend, testFactories())

		records, err := service.Discover(context.Background(), testOwner)
		require.NoError(t, err)

		require.Len(t, records, 2)
		assert.Equal(t, VersionV1, records[0].FactoryVersion)
		assert.Equal(t, uint64(1), records[0].DerivationNonce)
		assert.Equal(t, VersionV11, records[1].FactoryVersion)
	})

	t.Run("deployed but foreign-owned candidates are excluded", func(t *testing.T) {
		squatter := DeriveAddress(testFactories()[0], testOwner, 0)
		backend := &chainBackend{
			deployed: map[common.Address]bool{squatter: true},
			owned:    map[common.Address]bool{},
		}
		service := NewService(nil, backend, testFactories())

		records, err := service.Discover(context.Background(), testOwner)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("is idempotent", func(t *testing.T) {
		hit := DeriveAddress(testFactories()[0], testOwner, 2)
		backend := &chainBackend{
			deployed: map[common.Address]bool{hit: true},
			owned:    map[common.Address]bool{hit: true},
		}
		service := NewService(nil, backend, testFactories())

		first, err := service.Discover(context.Background(), testOwner)
		require.NoError(t, err)
		second, err := service.Discover(context.Background(), testOwner)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestPrimary(t *testing.T) {
	t.Run("prefers newest factory at index zero", func(t *testing.T) {
		records := []Record{
			{Address: common.HexToAddress("0x01"), FactoryVersion: VersionV1, DerivationNonce: 0},
			{Address: common.HexToAddress("0x02"), FactoryVersion: VersionV11, DerivationNonce: 0},
		}
		primary := Primary(records)
		require.NotNil(t, primary)
		assert.Equal(t, VersionV11, primary.FactoryVersion)
	})

	t.Run("falls back to oldest factory at index zero", func(t *testing.T) {
		records := []Record{
			{Address: common.HexToAddress("0x01"), FactoryVersion: VersionV1, DerivationNonce: 0},
			{Address: common.HexToAddress("0x02"), FactoryVersion: VersionV11, DerivationNonce: 3},
		}
		primary := Primary(records)
		require.NotNil(t, primary)
		assert.Equal(t, VersionV1, primary.FactoryVersion)
	})

	t.Run("falls back to the first record", func(t *testing.T) {
		records := []Record{
			{Address: common.HexToAddress("0x01"), FactoryVersion: VersionV1, DerivationNonce: 2},
		}
		primary := Primary(records)
		require.NotNil(t, primary)
		assert.Equal(t, records[0].Address, primary.Address)
	})

	t.Run("nil for no records", func(t *testing.T) {
		assert.Nil(t, Primary(nil))
	})
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "v1", VersionV1.String())
	assert.Equal(t, "v1.1", VersionV11.String())
	assert.Equal(t, "unknown", VersionUnknown.String())
}
