package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds the connection and contract parameters for one EVM chain.
// Invariant: ChainID and ChainIDInt must always represent the same value.
// ChainIDInt exists for YAML serialization (big.Int doesn't serialize cleanly);
// ChainID is used at runtime for RPC calls and transaction planning.
type Config struct {
	Name           string   `yaml:"name" mapstructure:"name"`
	ChainID        *big.Int `yaml:"-" mapstructure:"-"`
	ChainIDInt     int64    `yaml:"chain_id" mapstructure:"chain_id"`
	RPCURLs        []string `yaml:"rpc_urls" mapstructure:"rpc_urls"`
	ExplorerURL    string   `yaml:"explorer_url" mapstructure:"explorer_url"`
	NativeCurrency string   `yaml:"native_currency" mapstructure:"native_currency"`
	IsTestnet      bool     `yaml:"is_testnet" mapstructure:"is_testnet"`

	// Account factory deployments on this chain. Empty on chains where the
	// wallet contracts are not deployed; discovery fallback is unavailable
	// there.
	FactoryV1  string `yaml:"factory_v1" mapstructure:"factory_v1"`
	FactoryV11 string `yaml:"factory_v1_1" mapstructure:"factory_v1_1"`

	// ENS contract deployments. Empty on chains without ENS; the batch
	// planner falls back to plain collectible transfers there.
	ENSRegistry      string `yaml:"ens_registry" mapstructure:"ens_registry"`
	ENSBaseRegistrar string `yaml:"ens_base_registrar" mapstructure:"ens_base_registrar"`
	ENSNameWrapper   string `yaml:"ens_name_wrapper" mapstructure:"ens_name_wrapper"`
}

// HasENS reports whether ENS name-system contracts are deployed on this chain.
func (c *Config) HasENS() bool {
	return c.ENSRegistry != "" && c.ENSBaseRegistrar != ""
}

// Factories returns the deployed account factory addresses, oldest first.
func (c *Config) Factories() []common.Address {
	var out []common.Address
	if c.FactoryV1 != "" {
		out = append(out, common.HexToAddress(c.FactoryV1))
	}
	if c.FactoryV11 != "" {
		out = append(out, common.HexToAddress(c.FactoryV11))
	}
	return out
}

// DefaultChains returns the built-in chain configurations. Entries can be
// overridden or extended through the config file.
func DefaultChains() map[string]*Config {
	return map[string]*Config{
		"ethereum": {
			Name:             "Ethereum Mainnet",
			ChainID:          big.NewInt(1),
			ChainIDInt:       1,
			RPCURLs:          []string{"https://eth.llamarpc.com", "https://rpc.ankr.com/eth"},
			ExplorerURL:      "https://etherscan.io",
			NativeCurrency:   "ETH",
			IsTestnet:        false,
			FactoryV1:        "0x2E53A180a0F39Ff78cbc68a6792eFB0349B1F0c3",
			FactoryV11:       "0x74A2E1e0A1a7C21dAc8C23F513e472d6B1c6a7f1",
			ENSRegistry:      "0x00000000000C2E074eC69A0dBFc9cb17F88fC5EF",
			ENSBaseRegistrar: "0x57f1887a8BF19b14fC0dF6Fd9B2acc9Af147eA85",
			ENSNameWrapper:   "0xD4416b13d2b3a9aBae7AcD5D6C2BbDBE25686401",
		},
		"base": {
			Name:           "Base",
			ChainID:        big.NewInt(8453),
			ChainIDInt:     8453,
			RPCURLs:        []string{"https://mainnet.base.org", "https://base.llamarpc.com"},
			ExplorerURL:    "https://basescan.org",
			NativeCurrency: "ETH",
			IsTestnet:      false,
			FactoryV1:      "0x2E53A180a0F39Ff78cbc68a6792eFB0349B1F0c3",
			FactoryV11:     "0x74A2E1e0A1a7C21dAc8C23F513e472d6B1c6a7f1",
		},
		"sepolia": {
			Name:             "Sepolia Testnet",
			ChainID:          big.NewInt(11155111),
			ChainIDInt:       11155111,
			RPCURLs:          []string{"https://rpc.sepolia.org", "https://sepolia.drpc.org"},
			ExplorerURL:      "https://sepolia.etherscan.io",
			NativeCurrency:   "ETH",
			IsTestnet:        true,
			FactoryV1:        "0x2E53A180a0F39Ff78cbc68a6792eFB0349B1F0c3",
			FactoryV11:       "0x74A2E1e0A1a7C21dAc8C23F513e472d6B1c6a7f1",
			ENSRegistry:      "0x00000000000C2E074eC69A0dBFc9cb17F88fC5EF",
			ENSBaseRegistrar: "0x57f1887a8BF19b14fC0dF6Fd9B2acc9Af147eA85",
			ENSNameWrapper:   "0x0635513f179D50A207757E05759CbD106d7dFcE8",
		},
		"base-sepolia": {
			Name:           "Base Sepolia Testnet",
			ChainID:        big.NewInt(84532),
			ChainIDInt:     84532,
			RPCURLs:        []string{"https://sepolia.base.org"},
			ExplorerURL:    "https://sepolia.basescan.org",
			NativeCurrency: "ETH",
			IsTestnet:      true,
			FactoryV1:      "0x2E53A180a0F39Ff78cbc68a6792eFB0349B1F0c3",
			FactoryV11:     "0x74A2E1e0A1a7C21dAc8C23F513e472d6B1c6a7f1",
		},
	}
}
