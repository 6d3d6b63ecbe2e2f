// Package discovery locates the contract accounts a signer controls, first
// through the remote registry and then, when the registry is unreachable or
// empty, by deterministic on-chain derivation across factory versions and
// derivation indices.
package discovery

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"

	"github.com/voltaic-labs/tapwallet/internal/chain"
	"github.com/voltaic-labs/tapwallet/internal/wallet"
)

// Version identifies an account factory deployment generation.
type Version int

const (
	// VersionUnknown marks registry-sourced records, where the factory that
	// deployed the account is not reported.
	VersionUnknown Version = iota
	VersionV1
	VersionV11
)

func (v Version) String() string {
	switch v {
	case VersionV1:
		return "v1"
	case VersionV11:
		return "v1.1"
	}
	return "unknown"
}

// Init code hashes of the account proxy per factory generation, fixed at
// deployment time.
var initCodeHashes = map[Version]common.Hash{
	VersionV1:  common.HexToHash("0x8b95e13f0c41a9f6e6d094900d28fbcbce96fe8f1aa6142481a55a96a540a526"),
	VersionV11: common.HexToHash("0x21c37b53e0b47bfbb6a97d27ed3b7a14e9b7e6a15e5d3f2c0e9db27b6b5d9ce4"),
}

// Record is one discovered contract account. Read-only to downstream
// components; not persisted here.
type Record struct {
	Address         common.Address
	FactoryVersion  Version
	DerivationNonce uint64
	Deployed        bool
	OwnerConfirmed  bool
}

// Factory is one account factory deployment on the active chain.
type Factory struct {
	Version Version
	Address common.Address
}

// FactoriesFromConfig maps a chain configuration to the factory generations
// deployed on it, oldest first.
func FactoriesFromConfig(cfg *chain.Config) []Factory {
	var out []Factory
	if cfg.FactoryV1 != "" {
		out = append(out, Factory{Version: VersionV1, Address: common.HexToAddress(cfg.FactoryV1)})
	}
	if cfg.FactoryV11 != "" {
		out = append(out, Factory{Version: VersionV11, Address: common.HexToAddress(cfg.FactoryV11)})
	}
	return out
}

// DeriveAddress computes the counterfactual account address for an owner and
// derivation index under a factory: CREATE2 with
// salt = keccak256(owner as 32 bytes || index as uint256).
func DeriveAddress(factory Factory, owner common.Address, index uint64) common.Address {
	salt := crypto.Keccak256Hash(
		common.LeftPadBytes(owner.Bytes(), 32),
		common.LeftPadBytes(new(big.Int).SetUint64(index).Bytes(), 32),
	)
	return crypto.CreateAddress2(factory.Address, salt, initCodeHashes[factory.Version].Bytes())
}

// Service runs the two-phase discovery protocol.
type Service struct {
	registry  *RegistryClient // nil disables the remote phase
	backend   wallet.Backend
	factories []Factory

	// MaxIndex bounds the derivation indices probed per factory (0..MaxIndex-1).
	MaxIndex uint64
	// Concurrency bounds parallel per-candidate probes against the RPC
	// endpoint.
	Concurrency int
}

// NewService builds a discovery service. registry may be nil to force the
// on-chain phase.
func NewService(registry *RegistryClient, backend wallet.Backend, factories []Factory) *Service {
	return &Service{
		registry:    registry,
		backend:     backend,
		factories:   factories,
		MaxIndex:    4,
		Concurrency: 4,
	}
}

// Discover returns every contract account associated with the owner. The
// remote registry is authoritative when it answers with at least one record;
// otherwise each factory/index candidate is derived and probed on-chain. All
// matches are collected: a signer may legitimately control multiple accounts.
func (s *Service) Discover(ctx context.Context, owner common.Address) ([]Record, error) {
	if s.registry != nil {
		addrs, err := s.registry.AccountsFor(ctx, owner)
		if err == nil && len(addrs) > 0 {
			records := make([]Record, len(addrs))
			for i, addr := range addrs {
				// The registry indexes by owner, so deployment and ownership
				// are assumed from the trusted source.
				records[i] = Record{
					Address:         addr,
					FactoryVersion:  VersionUnknown,
					Deployed:        true,
					OwnerConfirmed:  true,
				}
			}
			return records, nil
		}
	}

	return s.deriveOnChain(ctx, owner)
}

func (s *Service) deriveOnChain(ctx context.Context, owner common.Address) ([]Record, error) {
	type candidate struct {
		factory Factory
		index   uint64
	}
	var candidates []candidate
	for _, factory := range s.factories {
		for index := uint64(0); index < s.MaxIndex; index++ {
			candidates = append(candidates, candidate{factory: factory, index: index})
		}
	}

	var (
		mu      sync.Mutex
		records []Record
	)
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(s.Concurrency)

	for _, cand := range candidates {
		cand := cand
		grp.Go(func() error {
			addr := DeriveAddress(cand.factory, owner, cand.index)

			code, err := s.backend.CodeAt(grpCtx, addr)
			if err != nil {
				return err
			}
			if len(code) == 0 {
				return nil
			}

			confirmed, err := wallet.ConfirmOwner(grpCtx, s.backend, addr, owner)
			if err != nil {
				return err
			}
			if !confirmed {
				return nil
			}

			mu.Lock()
			records = append(records, Record{
				Address:         addr,
				FactoryVersion:  cand.factory.Version,
				DerivationNonce: cand.index,
				Deployed:        true,
				OwnerConfirmed:  true,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	// Probes complete in arbitrary order; sort for a deterministic result set.
	sort.Slice(records, func(i, j int) bool {
		if records[i].FactoryVersion != records[j].FactoryVersion {
			return records[i].FactoryVersion < records[j].FactoryVersion
		}
		return records[i].DerivationNonce < records[j].DerivationNonce
	})
	return records, nil
}

// Primary selects a single account when exactly one caller is expected:
// newest factory at index 0, then oldest factory at index 0, then the first
// match. This is a default policy, not a guarantee of user intent.
func Primary(records []Record) *Record {
	if len(records) == 0 {
		return nil
	}
	for _, want := range []Version{VersionV11, VersionV1} {
		for i := range records {
			if records[i].FactoryVersion == want && records[i].DerivationNonce == 0 {
				return &records[i]
			}
		}
	}
	return &records[0]
}
