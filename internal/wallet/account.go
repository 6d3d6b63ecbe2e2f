package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Dispatch and owner-management interface of the secure-element account
// contract. Owner entries are raw bytes: either a 20-byte address or a 64/65
// byte uncompressed public key, depending on how the authority was enrolled.
const accountABIJSON = `[
	{"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"executeBatch","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"payloads","type":"bytes[]"}],"outputs":[{"name":"","type":"bytes[]"}]},
	{"type":"function","name":"getOwners","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes[]"}]},
	{"type":"function","name":"addOwner","stateMutability":"nonpayable","inputs":[{"name":"owner","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"removeOwner","stateMutability":"nonpayable","inputs":[{"name":"index","type":"uint256"},{"name":"owner","type":"bytes"}],"outputs":[]}
]`

var accountABI = mustParseABI(accountABIJSON)

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid account ABI: %v", err))
	}
	return parsed
}

// OwnerInfo is one registered authority on an account. Index is the on-chain
// storage slot and is stable across reads; it is required together with Raw to
// remove the owner.
type OwnerInfo struct {
	Address common.Address
	Raw     []byte
	Index   uint64
}

// EncodeExecute packs a single call into the account's dispatch entry point.
func EncodeExecute(call Call) ([]byte, error) {
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	return accountABI.Pack("execute", call.Target, value, call.Payload)
}

// EncodeExecuteBatch packs an ordered list of calls into one atomic batch
// dispatch. The contract executes the calls in order and reverts the whole
// batch if any step fails.
func EncodeExecuteBatch(calls []Call) ([]byte, error) {
	targets := make([]common.Address, len(calls))
	values := make([]*big.Int, len(calls))
	payloads := make([][]byte, len(calls))
	for i, call := range calls {
		targets[i] = call.Target
		values[i] = call.Value
		if values[i] == nil {
			values[i] = new(big.Int)
		}
		payloads[i] = call.Payload
	}
	return accountABI.Pack("executeBatch", targets, values, payloads)
}

// FetchOwners reads the account's full authority list.
func FetchOwners(ctx context.Context, backend Backend, account common.Address) ([]OwnerInfo, error) {
	data, err := accountABI.Pack("getOwners")
	if err != nil {
		return nil, err
	}

	out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &account, Data: data})
	if err != nil {
		return nil, err
	}

	vals, err := accountABI.Unpack("getOwners", out)
	if err != nil {
		return nil, fmt.Errorf("cannot decode owner list of %s: %w", account.Hex(), err)
	}
	raws, ok := vals[0].([][]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected owner list shape for %s", account.Hex())
	}

	owners := make([]OwnerInfo, len(raws))
	for i, raw := range raws {
		owners[i] = OwnerInfo{
			Address: ownerAddress(raw),
			Raw:     raw,
			Index:   uint64(i),
		}
	}
	return owners, nil
}

// ConfirmOwner reports whether signer is a registered authority of account.
func ConfirmOwner(ctx context.Context, backend Backend, account, signer common.Address) (bool, error) {
	owners, err := FetchOwners(ctx, backend, account)
	if err != nil {
		return false, err
	}
	for _, owner := range owners {
		if owner.Address == signer {
			return true, nil
		}
	}
	return false, nil
}

// ownerAddress derives the signing address from a raw owner entry. Entries the
// account stores as public keys map to the address the secure element signs
// with.
func ownerAddress(raw []byte) common.Address {
	switch len(raw) {
	case common.AddressLength:
		return common.BytesToAddress(raw)
	case 64:
		return common.BytesToAddress(crypto.Keccak256(raw)[12:])
	case 65:
		if raw[0] == 0x04 {
			return common.BytesToAddress(crypto.Keccak256(raw[1:])[12:])
		}
	}
	return common.Address{}
}
