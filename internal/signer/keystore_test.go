package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltaic-labs/tapwallet/internal/testutil"
)

// Well-known test key, never fund it.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func unsignedTestTx() *types.Transaction {
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     0,
		GasTipCap: big.NewInt(100_000_000),
		GasFeeCap: big.NewInt(2_000_000_000),
		Gas:       150_000,
		To:        &to,
		Value:     new(big.Int),
	})
}

func TestOpenKeystore(t *testing.T) {
	t.Run("creates the keystore directory", func(t *testing.T) {
		ks, err := OpenKeystore(testutil.TempDir(t))
		require.NoError(t, err)
		require.NotNil(t, ks)
		assert.Empty(t, ks.Addresses())
	})
}

func TestKeystoreImport(t *testing.T) {
	t.Run("imports a raw key", func(t *testing.T) {
		ks, err := OpenKeystore(testutil.TempDir(t))
		require.NoError(t, err)

		account, err := ks.Import(testPrivateKey, "hunter2")
		require.NoError(t, err)

		key, _ := crypto.HexToECDSA(testPrivateKey)
		assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), account.Address)
		assert.Contains(t, ks.Addresses(), account.Address)
	})

	t.Run("accepts a 0x prefix", func(t *testing.T) {
		ks, err := OpenKeystore(testutil.TempDir(t))
		require.NoError(t, err)

		_, err = ks.Import("0x"+testPrivateKey, "hunter2")
		assert.NoError(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		ks, err := OpenKeystore(testutil.TempDir(t))
		require.NoError(t, err)

		_, err = ks.Import("not-a-key", "hunter2")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestKeystoreUnlock(t *testing.T) {
	dir := testutil.TempDir(t)
	ks, err := OpenKeystore(dir)
	require.NoError(t, err)
	account, err := ks.Import(testPrivateKey, "hunter2")
	require.NoError(t, err)

	t.Run("unknown address", func(t *testing.T) {
		_, err := ks.Unlock(common.HexToAddress("0x9999999999999999999999999999999999999999"), "hunter2")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := ks.Unlock(account.Address, "wrong")
		assert.Error(t, err)
	})

	t.Run("signs a transaction as the keystore address", func(t *testing.T) {
		keySigner, err := ks.Unlock(account.Address, "hunter2")
		require.NoError(t, err)
		defer keySigner.Lock()

		assert.Equal(t, account.Address, keySigner.Address())

		signed, err := keySigner.SignTransaction(unsignedTestTx(), big.NewInt(1))
		require.NoError(t, err)

		sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), signed)
		require.NoError(t, err)
		assert.Equal(t, account.Address, sender)
	})

	t.Run("personal message signature recovers the address", func(t *testing.T) {
		keySigner, err := ks.Unlock(account.Address, "hunter2")
		require.NoError(t, err)
		defer keySigner.Lock()

		message := []byte("attest ownership")
		sig, err := keySigner.SignMessage(message)
		require.NoError(t, err)
		require.Len(t, sig, 65)
		assert.Contains(t, []byte{27, 28}, sig[64])

		prefixed := crypto.Keccak256(
			[]byte("\x19Ethereum Signed Message:\n16"),
			message,
		)
		sig[64] -= 27
		pub, err := crypto.SigToPub(prefixed, sig)
		require.NoError(t, err)
		assert.Equal(t, account.Address, crypto.PubkeyToAddress(*pub))
	})

	t.Run("locked signer refuses to sign", func(t *testing.T) {
		keySigner, err := ks.Unlock(account.Address, "hunter2")
		require.NoError(t, err)

		keySigner.Lock()
		_, err = keySigner.SignTransaction(unsignedTestTx(), big.NewInt(1))
		assert.ErrorIs(t, err, ErrKeyLocked)
		_, err = keySigner.SignMessage([]byte("x"))
		assert.ErrorIs(t, err, ErrKeyLocked)

		// Lock is idempotent
		keySigner.Lock()
	})
}

func TestCardSigner(t *testing.T) {
	t.Run("not present without a transport", func(t *testing.T) {
		_, err := NewCardSigner()
		assert.ErrorIs(t, err, ErrCardNotPresent)
	})
}
