package wallet

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// fakeBackend scripts chain state for pipeline tests and records every
// method invocation so tests can assert on query counts and ordering.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	code     []byte
	codeErr  error
	balances map[common.Address]*big.Int
	owners   [][]byte

	nonce       uint64
	gasPrice    *big.Int
	tip         *big.Int
	gasEstimate uint64
	estimateErr error

	// callFn overrides contract-call handling when set; otherwise getOwners
	// answers from owners and everything else returns empty data.
	callFn func(msg ethereum.CallMsg) ([]byte, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		code:        []byte{0x60, 0x80},
		balances:    map[common.Address]*big.Int{},
		gasPrice:    big.NewInt(2_000_000_000),
		tip:         big.NewInt(100_000_000),
		gasEstimate: 100_000,
	}
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	f.record("CodeAt")
	return f.code, f.codeErr
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	f.record("BalanceAt")
	if bal, ok := f.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.record("PendingNonceAt")
	return f.nonce, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	f.record("CallContract")
	if f.callFn != nil {
		return f.callFn(msg)
	}
	if len(msg.Data) >= 4 && [4]byte(msg.Data[:4]) == [4]byte(accountABI.Methods["getOwners"].ID) {
		return packOwners(f.owners)
	}
	return nil, nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.record("EstimateGas")
	return f.gasEstimate, f.estimateErr
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.record("SuggestGasPrice")
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	f.record("SuggestGasTipCap")
	return new(big.Int).Set(f.tip), nil
}

func packOwners(raws [][]byte) ([]byte, error) {
	return accountABI.Methods["getOwners"].Outputs.Pack(raws)
}
