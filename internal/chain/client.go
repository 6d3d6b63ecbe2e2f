package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// defaultCallTimeout bounds every single RPC read so a stalled endpoint
// surfaces as a retryable NetError instead of hanging the pipeline.
const defaultCallTimeout = 15 * time.Second

// Client manages connections to multiple EVM chains.
type Client struct {
	chains  map[string]*Config
	clients map[string]*ethclient.Client
	mu      sync.RWMutex
}

// NewClient creates a new multi-chain client.
func NewClient() *Client {
	return &Client{
		chains:  DefaultChains(),
		clients: make(map[string]*ethclient.Client),
	}
}

// AddChain adds or overrides a chain configuration.
func (c *Client) AddChain(name string, config *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chains[name] = config
}

// GetConfig returns the configuration for a chain.
func (c *Client) GetConfig(chainName string) (*Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	config, ok := c.chains[chainName]
	if !ok {
		return nil, fmt.Errorf("unknown chain: %s", chainName)
	}
	return config, nil
}

// ListChains returns the names of all configured chains.
func (c *Client) ListChains() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	chains := make([]string, 0, len(c.chains))
	for name := range c.chains {
		chains = append(chains, name)
	}
	return chains
}

// getClient returns an ethclient for the given chain, creating one if needed.
// Acquires write lock upfront to prevent duplicate connection creation under
// contention. The simpler locking model is preferred over double-checked
// locking since connection creation is not a hot path.
func (c *Client) getClient(chainName string) (*ethclient.Client, *Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	config, configExists := c.chains[chainName]
	if !configExists {
		return nil, nil, fmt.Errorf("unknown chain: %s", chainName)
	}

	if client, exists := c.clients[chainName]; exists {
		return client, config, nil
	}

	var lastErr error
	for _, rpcURL := range config.RPCURLs {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()

		if err != nil {
			lastErr = err
			continue
		}

		// Verify chain ID before trusting the endpoint
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		chainID, err := client.ChainID(ctx)
		cancel()

		if err != nil {
			client.Close()
			lastErr = err
			continue
		}

		if chainID.Cmp(config.ChainID) != 0 {
			client.Close()
			lastErr = fmt.Errorf("chain ID mismatch: expected %s, got %s", config.ChainID.String(), chainID.String())
			continue
		}

		c.clients[chainName] = client
		return client, config, nil
	}

	return nil, nil, &NetError{Op: "dial", Chain: chainName, Err: lastErr}
}

// Reader is a read/simulate view of one chain. A single Reader is reused
// across all steps of one pipeline run so every query goes to the same
// endpoint.
type Reader struct {
	chainName string
	config    *Config
	client    *ethclient.Client
	timeout   time.Duration
}

// Reader binds the client to a single chain, connecting if necessary.
func (c *Client) Reader(chainName string) (*Reader, error) {
	client, config, err := c.getClient(chainName)
	if err != nil {
		return nil, err
	}
	return &Reader{
		chainName: chainName,
		config:    config,
		client:    client,
		timeout:   defaultCallTimeout,
	}, nil
}

// Config returns the chain configuration the reader is bound to.
func (r *Reader) Config() *Config { return r.config }

// ChainID returns the bound chain's id.
func (r *Reader) ChainID() *big.Int { return r.config.ChainID }

func (r *Reader) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// CodeAt returns the contract bytecode at the given address.
func (r *Reader) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	code, err := r.client.CodeAt(ctx, account, nil)
	return code, wrapNetErr("eth_getCode", r.chainName, err)
}

// BalanceAt returns the native currency balance of an address.
func (r *Reader) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	bal, err := r.client.BalanceAt(ctx, account, nil)
	return bal, wrapNetErr("eth_getBalance", r.chainName, err)
}

// PendingNonceAt returns the next nonce for an address including pending txs.
func (r *Reader) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	nonce, err := r.client.PendingNonceAt(ctx, account)
	return nonce, wrapNetErr("eth_getTransactionCount", r.chainName, err)
}

// CallContract executes a read-only call against current state. Reverts come
// back as plain errors, not NetErrors.
func (r *Reader) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	out, err := r.client.CallContract(ctx, msg, nil)
	return out, wrapNetErr("eth_call", r.chainName, err)
}

// EstimateGas estimates gas for a call. A revert during estimation comes back
// as a plain error.
func (r *Reader) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	gas, err := r.client.EstimateGas(ctx, msg)
	return gas, wrapNetErr("eth_estimateGas", r.chainName, err)
}

// SuggestGasPrice returns the suggested max fee per gas.
func (r *Reader) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	fee, err := r.client.SuggestGasPrice(ctx)
	return fee, wrapNetErr("eth_gasPrice", r.chainName, err)
}

// SuggestGasTipCap returns the suggested priority fee per gas.
func (r *Reader) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	tip, err := r.client.SuggestGasTipCap(ctx)
	return tip, wrapNetErr("eth_maxPriorityFeePerGas", r.chainName, err)
}

// SendTransaction broadcasts a signed transaction.
func (r *Reader) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return wrapNetErr("eth_sendRawTransaction", r.chainName, r.client.SendTransaction(ctx, tx))
}

// WaitMined polls for the receipt of a broadcast transaction.
func (r *Reader) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := r.client.TransactionReceipt(ctx, txHash)
			if err == nil {
				return receipt, nil
			}
			// Not yet mined, keep waiting
		}
	}
}

// Close closes all client connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, client := range c.clients {
		client.Close()
	}
	c.clients = make(map[string]*ethclient.Client)
}

// Retry runs fn and retries it exactly once if it fails with a retryable
// network error. Definitive errors are returned immediately.
func Retry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !IsRetryable(err) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	return fn()
}
