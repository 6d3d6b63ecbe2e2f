package wallet

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind tags the recognized shape of a call. Classification is total: anything
// outside the closed selector set is KindUnknown and skips the specialized
// validation path while still going through generic simulation.
type Kind int

const (
	KindUnknown Kind = iota
	KindNativeTransfer
	KindFungibleTransfer
	KindNonFungibleTransfer
	KindMultiTokenTransfer
	KindOwnerAdd
	KindOwnerRemove
)

// Classification is the decoded view of a recognized call. Only the fields
// relevant to the Kind are set. Derived deterministically from a call and
// never mutated afterwards.
type Classification struct {
	Kind Kind

	// Asset contract for token transfers (token or collection address).
	Asset common.Address

	From      common.Address // sender inside the calldata (721/1155)
	Recipient common.Address
	Amount    *big.Int
	TokenID   *big.Int

	// Owner mutation fields
	OwnerBytes []byte
	OwnerIndex uint64
}

var selectorToKind = map[[4]byte]Kind{}

func init() {
	register := func(sel []byte, kind Kind) {
		var key [4]byte
		copy(key[:], sel)
		selectorToKind[key] = kind
	}
	register(erc20TransferSelector, KindFungibleTransfer)
	register(erc721TransferFromSelector, KindNonFungibleTransfer)
	register(erc721SafeTransferSelector, KindNonFungibleTransfer)
	register(erc1155SafeTransferSelector, KindMultiTokenTransfer)
	register(accountABI.Methods["addOwner"].ID, KindOwnerAdd)
	register(accountABI.Methods["removeOwner"].ID, KindOwnerRemove)
}

// ClassifyKind inspects the leading selector of a call's payload.
func ClassifyKind(call Call) Kind {
	if len(call.Payload) == 0 {
		if call.Value != nil {
			return KindNativeTransfer
		}
		return KindUnknown
	}
	if len(call.Payload) < 4 {
		return KindUnknown
	}

	var selector [4]byte
	copy(selector[:], call.Payload[:4])
	if kind, ok := selectorToKind[selector]; ok {
		return kind
	}
	return KindUnknown
}

// Classify decodes a call into its tagged classification. Unknown selectors
// classify cleanly as KindUnknown; a decode failure on a recognized selector
// is a MalformedCallError and rejects the operation.
func Classify(call Call) (Classification, error) {
	kind := ClassifyKind(call)

	switch kind {
	case KindUnknown:
		return Classification{Kind: KindUnknown}, nil

	case KindNativeTransfer:
		return Classification{
			Kind:      KindNativeTransfer,
			Recipient: call.Target,
			Amount:    new(big.Int).Set(call.Value),
		}, nil

	case KindFungibleTransfer:
		to, ok1 := readAddress(call.Payload, 0)
		amount, ok2 := readUint(call.Payload, 1)
		if !ok1 || !ok2 {
			return Classification{}, malformed(call, "transfer needs recipient and amount")
		}
		return Classification{
			Kind:      KindFungibleTransfer,
			Asset:     call.Target,
			Recipient: to,
			Amount:    amount,
		}, nil

	case KindNonFungibleTransfer:
		from, ok1 := readAddress(call.Payload, 0)
		to, ok2 := readAddress(call.Payload, 1)
		id, ok3 := readUint(call.Payload, 2)
		if !ok1 || !ok2 || !ok3 {
			return Classification{}, malformed(call, "transferFrom needs from, to and token id")
		}
		return Classification{
			Kind:      KindNonFungibleTransfer,
			Asset:     call.Target,
			From:      from,
			Recipient: to,
			TokenID:   id,
		}, nil

	case KindMultiTokenTransfer:
		from, ok1 := readAddress(call.Payload, 0)
		to, ok2 := readAddress(call.Payload, 1)
		id, ok3 := readUint(call.Payload, 2)
		amount, ok4 := readUint(call.Payload, 3)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return Classification{}, malformed(call, "safeTransferFrom needs from, to, id and amount")
		}
		return Classification{
			Kind:      KindMultiTokenTransfer,
			Asset:     call.Target,
			From:      from,
			Recipient: to,
			TokenID:   id,
			Amount:    amount,
		}, nil

	case KindOwnerAdd:
		owner, ok := readBytes(call.Payload, 0)
		if !ok {
			return Classification{}, malformed(call, "addOwner needs owner bytes")
		}
		return Classification{
			Kind:       KindOwnerAdd,
			Asset:      call.Target,
			OwnerBytes: owner,
		}, nil

	case KindOwnerRemove:
		index, ok1 := readUint(call.Payload, 0)
		owner, ok2 := readBytes(call.Payload, 1)
		if !ok1 || !ok2 || !index.IsUint64() {
			return Classification{}, malformed(call, "removeOwner needs slot index and owner bytes")
		}
		return Classification{
			Kind:       KindOwnerRemove,
			Asset:      call.Target,
			OwnerBytes: owner,
			OwnerIndex: index.Uint64(),
		}, nil
	}

	return Classification{Kind: KindUnknown}, nil
}

func malformed(call Call, reason string) error {
	var selector [4]byte
	copy(selector[:], call.Payload[:4])
	return &MalformedCallError{Selector: selector, Reason: reason}
}

// Bounds-checked calldata readers. No panics on short input.

func readWord(input []byte, paramIndex int) ([]byte, bool) {
	offset := 4 + 32*paramIndex
	if offset+32 > len(input) {
		return nil, false
	}
	return input[offset : offset+32], true
}

func readUint(input []byte, paramIndex int) (*big.Int, bool) {
	word, ok := readWord(input, paramIndex)
	if !ok {
		return nil, false
	}
	return new(big.Int).SetBytes(word), true
}

func readAddress(input []byte, paramIndex int) (common.Address, bool) {
	word, ok := readWord(input, paramIndex)
	if !ok {
		return common.Address{}, false
	}
	// Address is right-aligned in the 32-byte word; the upper 12 bytes must be
	// zero, anything else is not a valid address argument.
	if !bytes.Equal(word[:12], make([]byte, 12)) {
		return common.Address{}, false
	}
	return common.BytesToAddress(word[12:32]), true
}

// readBytes resolves a dynamic bytes parameter: head offset, then length, then
// the data itself.
func readBytes(input []byte, paramIndex int) ([]byte, bool) {
	offsetWord, ok := readWord(input, paramIndex)
	if !ok {
		return nil, false
	}
	offset := new(big.Int).SetBytes(offsetWord)
	if !offset.IsInt64() || offset.Int64() > int64(len(input)) {
		return nil, false
	}
	start := int(offset.Int64()) + 4
	if start < 4 || start+32 > len(input) {
		return nil, false
	}

	length := new(big.Int).SetBytes(input[start : start+32])
	if !length.IsInt64() {
		return nil, false
	}
	end := start + 32 + int(length.Int64())
	if end < start+32 || end > len(input) {
		return nil, false
	}
	out := make([]byte, length.Int64())
	copy(out, input[start+32:end])
	return out, true
}
