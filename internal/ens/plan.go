// Package ens plans compound transfers of ENS names held by a contract
// account. A name in wrapped (ERC-1155) representation moves with a single
// call; an unwrapped .eth registrar token needs the resolver record, the
// registry authority and the token itself moved together, as one atomic
// batch, so a partially transferred name can never strand the account.
package ens

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/voltaic-labs/tapwallet/internal/chain"
	"github.com/voltaic-labs/tapwallet/internal/wallet"
)

// ENS registry selectors
var (
	// resolver(bytes32)
	resolverSelector = common.Hex2Bytes("0178b8bf")
	// setOwner(bytes32,address)
	setOwnerSelector = common.Hex2Bytes("5b0fc9c3")
	// setAddr(bytes32,address)
	setAddrSelector = common.Hex2Bytes("d5fa2b00")
)

// ethNode is namehash("eth"), the parent node of every .eth second-level name.
var ethNode = common.HexToHash("0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae")

// Contracts are the ENS deployments on one chain.
type Contracts struct {
	Registry      common.Address
	BaseRegistrar common.Address
	NameWrapper   common.Address
}

// ContractsFromConfig reads the ENS deployment out of a chain configuration.
// Returns ok=false when the chain has no ENS.
func ContractsFromConfig(cfg *chain.Config) (Contracts, bool) {
	if !cfg.HasENS() {
		return Contracts{}, false
	}
	return Contracts{
		Registry:      common.HexToAddress(cfg.ENSRegistry),
		BaseRegistrar: common.HexToAddress(cfg.ENSBaseRegistrar),
		NameWrapper:   common.HexToAddress(cfg.ENSNameWrapper),
	}, true
}

// Planner decomposes collectible transfers, special-casing ENS collections.
// It implements wallet.Planner.
type Planner struct {
	backend   wallet.Backend
	contracts Contracts
}

// NewPlanner builds a planner over the given chain backend.
func NewPlanner(backend wallet.Backend, contracts Contracts) *Planner {
	return &Planner{backend: backend, contracts: contracts}
}

// Plan returns the ordered calls for transferring one collectible out of the
// account. Multi-step plans must be submitted as a single atomic batch.
func (p *Planner) Plan(ctx context.Context, session wallet.Session, collection, to common.Address, id *big.Int) ([]wallet.PlannedCall, error) {
	switch collection {
	case p.contracts.NameWrapper:
		if p.contracts.NameWrapper == (common.Address{}) {
			break
		}
		// Wrapped names are plain multi-token assets; one call moves
		// everything.
		call, err := wallet.EncodeMultiTokenTransfer(collection, session.Account, to, id, big.NewInt(1))
		if err != nil {
			return nil, err
		}
		return []wallet.PlannedCall{{Call: call, Label: "transfer wrapped name"}}, nil

	case p.contracts.BaseRegistrar:
		return p.planRegistrarTransfer(ctx, session, to, id)
	}

	call, err := wallet.EncodeCollectibleTransfer(collection, session.Account, to, id)
	if err != nil {
		return nil, err
	}
	return []wallet.PlannedCall{{Call: call, Label: "transfer collectible"}}, nil
}

// planRegistrarTransfer builds the three-step plan for an unwrapped .eth
// name: update the resolver record if one is set, hand over registry
// management, then move the registrar token. The token transfer is mandatory;
// the resolver step is skipped when the name has no resolver.
func (p *Planner) planRegistrarTransfer(ctx context.Context, session wallet.Session, to common.Address, id *big.Int) ([]wallet.PlannedCall, error) {
	node := NodeForLabelhash(common.BigToHash(id))

	var calls []wallet.PlannedCall

	resolver, err := p.lookupResolver(ctx, node)
	if err != nil {
		return nil, err
	}
	if resolver != (common.Address{}) {
		calls = append(calls, wallet.PlannedCall{
			Call:  encodeNodeAddressCall(resolver, setAddrSelector, node, to),
			Label: "point name at new owner",
		})
	}

	calls = append(calls, wallet.PlannedCall{
		Call:  encodeNodeAddressCall(p.contracts.Registry, setOwnerSelector, node, to),
		Label: "hand over name management",
	})

	transfer, err := wallet.EncodeCollectibleTransferUnsafe(p.contracts.BaseRegistrar, session.Account, to, id)
	if err != nil {
		return nil, err
	}
	calls = append(calls, wallet.PlannedCall{Call: transfer, Label: "transfer name token"})

	return calls, nil
}

// lookupResolver is best-effort: an unset resolver or a definitive lookup
// failure just drops the resolver step, while a retryable network error
// propagates so the caller can retry.
func (p *Planner) lookupResolver(ctx context.Context, node common.Hash) (common.Address, error) {
	callData := make([]byte, 0, 4+32)
	callData = append(callData, resolverSelector...)
	callData = append(callData, node.Bytes()...)

	registry := p.contracts.Registry
	out, err := p.backend.CallContract(ctx, ethereum.CallMsg{To: &registry, Data: callData})
	if err != nil {
		if chain.IsRetryable(err) {
			return common.Address{}, err
		}
		return common.Address{}, nil
	}
	if len(out) < 32 {
		return common.Address{}, nil
	}
	return common.BytesToAddress(out[12:32]), nil
}

func encodeNodeAddressCall(target common.Address, selector []byte, node common.Hash, addr common.Address) wallet.Call {
	payload := make([]byte, 0, 4+2*32)
	payload = append(payload, selector...)
	payload = append(payload, node.Bytes()...)
	payload = append(payload, common.LeftPadBytes(addr.Bytes(), 32)...)
	return wallet.Call{Target: target, Value: new(big.Int), Payload: payload}
}

// NodeForLabelhash derives the registry node of a .eth second-level name from
// its registrar token id, which is the keccak hash of the label.
func NodeForLabelhash(labelhash common.Hash) common.Hash {
	return crypto.Keccak256Hash(ethNode.Bytes(), labelhash.Bytes())
}

// Namehash implements the ENS name hashing algorithm.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelhash := crypto.Keccak256Hash([]byte(labels[i]))
		node = crypto.Keccak256Hash(node.Bytes(), labelhash.Bytes())
	}
	return node
}

// Labelhash returns the keccak hash of a single label, which doubles as the
// registrar token id for .eth names.
func Labelhash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}
