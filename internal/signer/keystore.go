package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrKeyNotFound = errors.New("no key for address in keystore")
	ErrKeyLocked   = errors.New("key is locked")
	ErrInvalidKey  = errors.New("invalid private key")
)

// Keystore wraps go-ethereum's encrypted keystore as the development signing
// backend. In production the owner key lives on the secure element and never
// touches disk; the keystore exists so the full prepare/sign/broadcast path
// can be exercised against testnets.
type Keystore struct {
	ks *keystore.KeyStore
}

// OpenKeystore opens (creating if needed) the keystore under dataDir.
func OpenKeystore(dataDir string) (*Keystore, error) {
	dir := filepath.Join(dataDir, "keystore")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cannot create keystore directory: %w", err)
	}
	return &Keystore{
		ks: keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
	}, nil
}

// Create generates a new encrypted key.
func (k *Keystore) Create(password string) (accounts.Account, error) {
	return k.ks.NewAccount(password)
}

// Import encrypts and stores a raw hex private key.
func (k *Keystore) Import(privateKeyHex, password string) (accounts.Account, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return accounts.Account{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return k.ks.ImportECDSA(key, password)
}

// Addresses lists every stored signing address.
func (k *Keystore) Addresses() []common.Address {
	accs := k.ks.Accounts()
	out := make([]common.Address, len(accs))
	for i, acc := range accs {
		out[i] = acc.Address
	}
	return out
}

// Unlock decrypts the key for address and returns a Signer over it.
func (k *Keystore) Unlock(address common.Address, password string) (*KeySigner, error) {
	var target *accounts.Account
	for _, acc := range k.ks.Accounts() {
		if acc.Address == address {
			target = &acc
			break
		}
	}
	if target == nil {
		return nil, ErrKeyNotFound
	}

	keyJSON, err := k.ks.Export(*target, password, password)
	if err != nil {
		return nil, fmt.Errorf("cannot unlock key: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("cannot decrypt key: %w", err)
	}

	return &KeySigner{address: address, key: key.PrivateKey}, nil
}

// KeySigner signs with a decrypted keystore key.
type KeySigner struct {
	// mu keeps signing from racing with Lock(), which zeros the key.
	mu      sync.RWMutex
	address common.Address
	key     *ecdsa.PrivateKey // nil when locked
}

// Address returns the signing address.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignTransaction signs an unsigned transaction for the given chain.
func (s *KeySigner) SignTransaction(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrKeyLocked
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// SignMessage signs an arbitrary message with the EIP-191 personal prefix.
// The prefix keeps signed messages from being replayed as transactions.
func (s *KeySigner) SignMessage(message []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrKeyLocked
	}

	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	hash := crypto.Keccak256([]byte(prefix), message)

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, err
	}
	// ecrecover expects V in {27,28}
	sig[64] += 27
	return sig, nil
}

// Lock zeros the key material. Safe to call repeatedly; signing afterwards
// returns ErrKeyLocked.
func (s *KeySigner) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		s.key.D.SetInt64(0)
		s.key = nil
	}
}
