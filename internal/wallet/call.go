package wallet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Standard token transfer selectors
var (
	// transfer(address,uint256)
	erc20TransferSelector = common.Hex2Bytes("a9059cbb")
	// transferFrom(address,address,uint256)
	erc721TransferFromSelector = common.Hex2Bytes("23b872dd")
	// safeTransferFrom(address,address,uint256)
	erc721SafeTransferSelector = common.Hex2Bytes("42842e0e")
	// safeTransferFrom(address,address,uint256,uint256,bytes)
	erc1155SafeTransferSelector = common.Hex2Bytes("f242432a")
	// balanceOf(address)
	balanceOfSelector = common.Hex2Bytes("70a08231")
	// ownerOf(uint256)
	ownerOfSelector = common.Hex2Bytes("6352211e")
	// balanceOf(address,uint256)
	balanceOfIDSelector = common.Hex2Bytes("00fdd58e")
	// symbol()
	symbolSelector = common.Hex2Bytes("95d89b41")
)

// Call is one atomic instruction the account contract can be told to execute.
// Immutable once built.
type Call struct {
	Target  common.Address
	Value   *big.Int
	Payload []byte
}

// PlannedCall pairs a call with a human-readable step label for compound
// plans.
type PlannedCall struct {
	Call  Call
	Label string
}

// NewNativeTransfer builds a plain value move. The payload stays empty; target
// and value carry the whole transfer.
func NewNativeTransfer(to common.Address, amount *big.Int) (Call, error) {
	if to == (common.Address{}) {
		return Call{}, &EncodingError{Field: "recipient", Reason: "is the zero address"}
	}
	if err := checkAmount("amount", amount); err != nil {
		return Call{}, err
	}
	return Call{Target: to, Value: new(big.Int).Set(amount)}, nil
}

// EncodeTokenTransfer builds an ERC-20 transfer(to, amount) call.
func EncodeTokenTransfer(token, to common.Address, amount *big.Int) (Call, error) {
	if token == (common.Address{}) {
		return Call{}, &EncodingError{Field: "token", Reason: "is the zero address"}
	}
	if to == (common.Address{}) {
		return Call{}, &EncodingError{Field: "recipient", Reason: "is the zero address"}
	}
	if err := checkAmount("amount", amount); err != nil {
		return Call{}, err
	}

	payload := make([]byte, 0, 4+2*32)
	payload = append(payload, erc20TransferSelector...)
	payload = append(payload, common.LeftPadBytes(to.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(amount.Bytes(), 32)...)

	return Call{Target: token, Value: new(big.Int), Payload: payload}, nil
}

// EncodeCollectibleTransfer builds an ERC-721 safeTransferFrom(from, to, id)
// call.
func EncodeCollectibleTransfer(collection, from, to common.Address, id *big.Int) (Call, error) {
	return encode721(erc721SafeTransferSelector, collection, from, to, id)
}

// EncodeCollectibleTransferUnsafe builds the plain transferFrom variant, used
// where the receiving contract predates the safe-transfer callback.
func EncodeCollectibleTransferUnsafe(collection, from, to common.Address, id *big.Int) (Call, error) {
	return encode721(erc721TransferFromSelector, collection, from, to, id)
}

func encode721(selector []byte, collection, from, to common.Address, id *big.Int) (Call, error) {
	if collection == (common.Address{}) {
		return Call{}, &EncodingError{Field: "collection", Reason: "is the zero address"}
	}
	if to == (common.Address{}) {
		return Call{}, &EncodingError{Field: "recipient", Reason: "is the zero address"}
	}
	if err := checkID(id); err != nil {
		return Call{}, err
	}

	payload := make([]byte, 0, 4+3*32)
	payload = append(payload, selector...)
	payload = append(payload, common.LeftPadBytes(from.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(to.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(id.Bytes(), 32)...)

	return Call{Target: collection, Value: new(big.Int), Payload: payload}, nil
}

// EncodeMultiTokenTransfer builds an ERC-1155
// safeTransferFrom(from, to, id, amount, "") call.
func EncodeMultiTokenTransfer(collection, from, to common.Address, id, amount *big.Int) (Call, error) {
	if collection == (common.Address{}) {
		return Call{}, &EncodingError{Field: "collection", Reason: "is the zero address"}
	}
	if to == (common.Address{}) {
		return Call{}, &EncodingError{Field: "recipient", Reason: "is the zero address"}
	}
	if err := checkID(id); err != nil {
		return Call{}, err
	}
	if err := checkAmount("amount", amount); err != nil {
		return Call{}, err
	}

	// 5 params, bytes is dynamic: head is 5 slots, data offset points past it,
	// then a zero-length slot for the empty bytes payload.
	payload := make([]byte, 0, 4+6*32)
	payload = append(payload, erc1155SafeTransferSelector...)
	payload = append(payload, common.LeftPadBytes(from.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(to.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(id.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(amount.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(big.NewInt(5*32).Bytes(), 32)...)
	payload = append(payload, make([]byte, 32)...)

	return Call{Target: collection, Value: new(big.Int), Payload: payload}, nil
}

// EncodeOwnerAdd builds an addOwner(owner) call against the account itself.
func EncodeOwnerAdd(account common.Address, ownerBytes []byte) (Call, error) {
	if account == (common.Address{}) {
		return Call{}, &EncodingError{Field: "account", Reason: "is the zero address"}
	}
	if err := checkOwnerBytes(ownerBytes); err != nil {
		return Call{}, err
	}

	payload, err := accountABI.Pack("addOwner", ownerBytes)
	if err != nil {
		return Call{}, &EncodingError{Field: "owner", Reason: err.Error()}
	}
	return Call{Target: account, Value: new(big.Int), Payload: payload}, nil
}

// EncodeOwnerRemove builds a removeOwner(index, owner) call against the
// account itself. The storage is keyed by slot, so removal needs both the
// index and the exact raw owner bytes at that slot: removing by address alone
// could evict the wrong entry after a concurrent mutation.
func EncodeOwnerRemove(account common.Address, index uint64, ownerBytes []byte) (Call, error) {
	if account == (common.Address{}) {
		return Call{}, &EncodingError{Field: "account", Reason: "is the zero address"}
	}
	if err := checkOwnerBytes(ownerBytes); err != nil {
		return Call{}, err
	}

	payload, err := accountABI.Pack("removeOwner", new(big.Int).SetUint64(index), ownerBytes)
	if err != nil {
		return Call{}, &EncodingError{Field: "owner", Reason: err.Error()}
	}
	return Call{Target: account, Value: new(big.Int), Payload: payload}, nil
}

func checkAmount(field string, amount *big.Int) error {
	if amount == nil {
		return &EncodingError{Field: field, Reason: "is missing"}
	}
	if amount.Sign() < 0 {
		return &EncodingError{Field: field, Reason: "is negative"}
	}
	if amount.BitLen() > 256 {
		return &EncodingError{Field: field, Reason: "exceeds uint256"}
	}
	return nil
}

func checkID(id *big.Int) error {
	if id == nil {
		return &EncodingError{Field: "token id", Reason: "is missing"}
	}
	if id.Sign() < 0 {
		return &EncodingError{Field: "token id", Reason: "is negative"}
	}
	if id.BitLen() > 256 {
		return &EncodingError{Field: "token id", Reason: "exceeds uint256"}
	}
	return nil
}

func checkOwnerBytes(ownerBytes []byte) error {
	switch len(ownerBytes) {
	case common.AddressLength, 64, 65:
		return nil
	}
	return &EncodingError{Field: "owner", Reason: "must be a 20-byte address or a 64/65-byte public key"}
}
