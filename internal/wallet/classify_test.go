package wallet

import (
	"bytes"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKind(t *testing.T) {
	t.Run("empty payload with value is a native transfer", func(t *testing.T) {
		kind := ClassifyKind(Call{Target: testRecipient, Value: big.NewInt(1)})
		assert.Equal(t, KindNativeTransfer, kind)
	})

	t.Run("empty payload with zero value is still a native transfer", func(t *testing.T) {
		cls, err := Classify(Call{Target: testRecipient, Value: new(big.Int)})
		require.NoError(t, err)
		assert.Equal(t, KindNativeTransfer, cls.Kind)
		assert.Equal(t, int64(0), cls.Amount.Int64())
	})

	t.Run("empty payload without value is unknown", func(t *testing.T) {
		assert.Equal(t, KindUnknown, ClassifyKind(Call{Target: testRecipient}))
	})

	t.Run("payload shorter than a selector is unknown", func(t *testing.T) {
		kind := ClassifyKind(Call{Target: testToken, Payload: []byte{0xa9, 0x05}})
		assert.Equal(t, KindUnknown, kind)
	})

	t.Run("unrecognized selector is unknown", func(t *testing.T) {
		kind := ClassifyKind(Call{Target: testToken, Payload: common.Hex2Bytes("deadbeef")})
		assert.Equal(t, KindUnknown, kind)
	})
}

func TestClassifyRoundTrip(t *testing.T) {
	t.Run("fungible transfer", func(t *testing.T) {
		call, err := EncodeTokenTransfer(testToken, testRecipient, big.NewInt(1234))
		require.NoError(t, err)

		cls, err := Classify(call)
		require.NoError(t, err)
		assert.Equal(t, KindFungibleTransfer, cls.Kind)
		assert.Equal(t, testToken, cls.Asset)
		assert.Equal(t, testRecipient, cls.Recipient)
		assert.Equal(t, int64(1234), cls.Amount.Int64())
	})

	t.Run("non-fungible transfer, both selectors", func(t *testing.T) {
		safe, err := EncodeCollectibleTransfer(testCollection, testAccount, testRecipient, big.NewInt(7))
		require.NoError(t, err)
		unsafe, err := EncodeCollectibleTransferUnsafe(testCollection, testAccount, testRecipient, big.NewInt(7))
		require.NoError(t, err)

		for _, call := range []Call{safe, unsafe} {
			cls, err := Classify(call)
			require.NoError(t, err)
			assert.Equal(t, KindNonFungibleTransfer, cls.Kind)
			assert.Equal(t, testAccount, cls.From)
			assert.Equal(t, testRecipient, cls.Recipient)
			assert.Equal(t, int64(7), cls.TokenID.Int64())
		}
	})

	t.Run("multi-token transfer", func(t *testing.T) {
		call, err := EncodeMultiTokenTransfer(testCollection, testAccount, testRecipient, big.NewInt(9), big.NewInt(3))
		require.NoError(t, err)

		cls, err := Classify(call)
		require.NoError(t, err)
		assert.Equal(t, KindMultiTokenTransfer, cls.Kind)
		assert.Equal(t, int64(9), cls.TokenID.Int64())
		assert.Equal(t, int64(3), cls.Amount.Int64())
	})

	t.Run("owner add", func(t *testing.T) {
		owner := append([]byte{0x04}, bytes.Repeat([]byte{0xCD}, 64)...)
		call, err := EncodeOwnerAdd(testAccount, owner)
		require.NoError(t, err)

		cls, err := Classify(call)
		require.NoError(t, err)
		assert.Equal(t, KindOwnerAdd, cls.Kind)
		assert.Equal(t, owner, cls.OwnerBytes)
	})

	t.Run("owner remove keeps slot index and raw bytes", func(t *testing.T) {
		owner := bytes.Repeat([]byte{0xAA}, 20)
		call, err := EncodeOwnerRemove(testAccount, 2, owner)
		require.NoError(t, err)

		cls, err := Classify(call)
		require.NoError(t, err)
		assert.Equal(t, KindOwnerRemove, cls.Kind)
		assert.Equal(t, uint64(2), cls.OwnerIndex)
		assert.Equal(t, owner, cls.OwnerBytes)
	})

	t.Run("native transfer", func(t *testing.T) {
		call, err := NewNativeTransfer(testRecipient, big.NewInt(500))
		require.NoError(t, err)

		cls, err := Classify(call)
		require.NoError(t, err)
		assert.Equal(t, KindNativeTransfer, cls.Kind)
		assert.Equal(t, testRecipient, cls.Recipient)
		assert.Equal(t, int64(500), cls.Amount.Int64())
	})
}

func TestClassifyMalformed(t *testing.T) {
	t.Run("truncated recognized calldata is rejected", func(t *testing.T) {
		payload := append([]byte{}, erc20TransferSelector...)
		payload = append(payload, make([]byte, 32)...) // recipient only, no amount

		_, err := Classify(Call{Target: testToken, Payload: payload})
		var malErr *MalformedCallError
		require.ErrorAs(t, err, &malErr)
		assert.Equal(t, [4]byte(erc20TransferSelector), malErr.Selector)
	})

	t.Run("dirty upper address bytes are rejected", func(t *testing.T) {
		payload := append([]byte{}, erc20TransferSelector...)
		word := make([]byte, 32)
		word[0] = 0xFF // address words must be left-padded with zeros
		copy(word[12:], testRecipient.Bytes())
		payload = append(payload, word...)
		payload = append(payload, common.LeftPadBytes(big.NewInt(1).Bytes(), 32)...)

		_, err := Classify(Call{Target: testToken, Payload: payload})
		var malErr *MalformedCallError
		require.ErrorAs(t, err, &malErr)
	})

	t.Run("removeOwner with out-of-range offset is rejected", func(t *testing.T) {
		payload := append([]byte{}, accountABI.Methods["removeOwner"].ID...)
		payload = append(payload, common.LeftPadBytes(big.NewInt(2).Bytes(), 32)...)
		payload = append(payload, common.LeftPadBytes(big.NewInt(4096).Bytes(), 32)...) // offset past the end

		_, err := Classify(Call{Target: testAccount, Payload: payload})
		var malErr *MalformedCallError
		require.ErrorAs(t, err, &malErr)
	})

	t.Run("removeOwner with near-max offset is rejected without panicking", func(t *testing.T) {
		payload := append([]byte{}, accountABI.Methods["removeOwner"].ID...)
		payload = append(payload, common.LeftPadBytes(big.NewInt(2).Bytes(), 32)...)
		offset := new(big.Int).SetInt64(math.MaxInt64 - 10)
		payload = append(payload, common.LeftPadBytes(offset.Bytes(), 32)...)

		_, err := Classify(Call{Target: testAccount, Payload: payload})
		var malErr *MalformedCallError
		require.ErrorAs(t, err, &malErr)
	})

	t.Run("unknown selector classifies cleanly", func(t *testing.T) {
		cls, err := Classify(Call{Target: testToken, Payload: common.Hex2Bytes("deadbeef00000000")})
		require.NoError(t, err)
		assert.Equal(t, KindUnknown, cls.Kind)
	})
}
