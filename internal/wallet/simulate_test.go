package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcRevertError mimics the data-carrying error go-ethereum returns for an
// eth_call revert.
type rpcRevertError struct {
	msg  string
	data string
}

func (e *rpcRevertError) Error() string          { return e.msg }
func (e *rpcRevertError) ErrorData() interface{} { return e.data }

// retryableError mimics a transport failure tagged retryable.
type retryableError struct{}

func (retryableError) Error() string   { return "connection reset" }
func (retryableError) Retryable() bool { return true }

func revertData(reason string) string {
	payload := append([]byte{}, errorStringSelector...)
	payload = append(payload, common.LeftPadBytes(big.NewInt(32).Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(big.NewInt(int64(len(reason))).Bytes(), 32)...)
	payload = append(payload, common.RightPadBytes([]byte(reason), 32)...)
	return "0x" + hex.EncodeToString(payload)
}

func TestPreflight(t *testing.T) {
	ctx := context.Background()

	t.Run("passing call", func(t *testing.T) {
		backend := newFakeBackend()
		backend.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
			// The call must run as the account itself.
			assert.Equal(t, testAccount, msg.From)
			return []byte{}, nil
		}

		call, err := EncodeTokenTransfer(testToken, testRecipient, big.NewInt(1))
		require.NoError(t, err)
		assert.NoError(t, Preflight(ctx, backend, testAccount, call))
	})

	t.Run("revert with reason string", func(t *testing.T) {
		backend := newFakeBackend()
		backend.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
			return nil, &rpcRevertError{msg: "execution reverted", data: revertData("transfer to paused token")}
		}

		call, err := EncodeTokenTransfer(testToken, testRecipient, big.NewInt(1))
		require.NoError(t, err)

		err = Preflight(ctx, backend, testAccount, call)
		var simErr *SimulationFailedError
		require.ErrorAs(t, err, &simErr)
		assert.Equal(t, "transfer to paused token", simErr.Reason)
		assert.NotEmpty(t, simErr.Raw)
	})

	t.Run("revert without data keeps the raw error", func(t *testing.T) {
		backend := newFakeBackend()
		cause := errors.New("execution reverted")
		backend.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
			return nil, cause
		}

		call, err := NewNativeTransfer(testRecipient, big.NewInt(1))
		require.NoError(t, err)

		err = Preflight(ctx, backend, testAccount, call)
		var simErr *SimulationFailedError
		require.ErrorAs(t, err, &simErr)
		assert.Empty(t, simErr.Reason)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("retryable transport failure propagates untouched", func(t *testing.T) {
		backend := newFakeBackend()
		backend.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
			return nil, retryableError{}
		}

		call, err := NewNativeTransfer(testRecipient, big.NewInt(1))
		require.NoError(t, err)

		err = Preflight(ctx, backend, testAccount, call)
		var simErr *SimulationFailedError
		assert.False(t, errors.As(err, &simErr))
		assert.ErrorAs(t, err, &retryableError{})
	})
}

func TestDecodeRevertPayload(t *testing.T) {
	t.Run("decodes Error(string)", func(t *testing.T) {
		raw, err := hex.DecodeString(revertData("nope")[2:])
		require.NoError(t, err)
		assert.Equal(t, "nope", decodeRevertPayload(raw))
	})

	t.Run("foreign selector yields empty", func(t *testing.T) {
		raw := make([]byte, 4+64)
		raw[0] = 0xde
		assert.Equal(t, "", decodeRevertPayload(raw))
	})

	t.Run("truncated payload yields empty", func(t *testing.T) {
		assert.Equal(t, "", decodeRevertPayload(errorStringSelector))
	})
}
