package cli

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/voltaic-labs/tapwallet/internal/chain"
	"github.com/voltaic-labs/tapwallet/internal/discovery"
	"github.com/voltaic-labs/tapwallet/internal/ens"
	"github.com/voltaic-labs/tapwallet/internal/telemetry"
	"github.com/voltaic-labs/tapwallet/internal/wallet"
)

var (
	cfgFile   string
	flagChain string

	rootCmd = &cobra.Command{
		Use:   "tapwallet",
		Short: "Transaction engine for secure-element smart wallets",
		Long: `tapwallet prepares, validates and signs transactions for contract
accounts owned by an NFC secure element.

Every intent is classified, checked against on-chain preconditions and
dry-run before anything is handed to the signer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command, printing any failure in the CLI's own style.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render(symbolCross), err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.tapwallet/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagChain, "chain", "ethereum", "chain to operate on")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".tapwallet"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	viper.SetEnvPrefix("TAPWALLET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("registry_url", "https://registry.tapwallet.io")
	viper.SetDefault("strict_from", false)
	viper.SetDefault("log_json", false)

	_ = viper.ReadInConfig() // config file is optional
}

func dataDir() string {
	if dir := viper.GetString("data_dir"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tapwallet"
	}
	return filepath.Join(home, ".tapwallet")
}

// chainClient builds the multi-chain client with per-chain overrides from the
// config file applied on top of the defaults.
func chainClient() *chain.Client {
	client := chain.NewClient()

	var overrides map[string]*chain.Config
	if err := viper.UnmarshalKey("chains", &overrides); err == nil {
		for name, cfg := range overrides {
			if cfg.ChainID == nil {
				cfg.ChainID = big.NewInt(cfg.ChainIDInt)
			}
			client.AddChain(name, cfg)
		}
	}
	return client
}

// chainReader connects to the selected chain.
func chainReader() (*chain.Reader, error) {
	return chainClient().Reader(flagChain)
}

// newPipeline assembles the prepare pipeline for one chain, with the ENS
// planner and zap-backed telemetry wired in.
func newPipeline(reader *chain.Reader) (*wallet.Pipeline, error) {
	log, err := telemetry.NewLogger(viper.GetBool("log_json"))
	if err != nil {
		return nil, err
	}

	opts := []wallet.Option{
		wallet.WithEmitter(telemetry.NewZapEmitter(log.Named("pipeline"))),
		wallet.WithValidateConfig(wallet.ValidateConfig{
			StrictFrom:   viper.GetBool("strict_from"),
			NativeSymbol: reader.Config().NativeCurrency,
		}),
	}
	if contracts, ok := ens.ContractsFromConfig(reader.Config()); ok {
		opts = append(opts, wallet.WithPlanner(ens.NewPlanner(reader, contracts)))
	}

	return wallet.NewPipeline(reader, opts...), nil
}

// prepareWithRetry runs a prepare call, retrying once when it failed on a
// transient network error. Definitive pipeline errors surface immediately.
func prepareWithRetry(ctx context.Context, fn func(context.Context) (*wallet.Prepared, error)) (*wallet.Prepared, error) {
	var prepared *wallet.Prepared
	err := chain.Retry(ctx, func() error {
		var err error
		prepared, err = fn(ctx)
		return err
	})
	return prepared, err
}

// resolveSession builds the per-intent context from flags, discovering the
// account when none is given explicitly.
func resolveSession(cmd *cobra.Command, reader *chain.Reader) (wallet.Session, error) {
	signerHex, _ := cmd.Flags().GetString("signer")
	accountHex, _ := cmd.Flags().GetString("account")

	if !common.IsHexAddress(signerHex) {
		return wallet.Session{}, fmt.Errorf("--signer must be a hex address")
	}
	session := wallet.Session{
		Signer:  common.HexToAddress(signerHex),
		ChainID: reader.ChainID(),
	}

	if accountHex != "" {
		if !common.IsHexAddress(accountHex) {
			return wallet.Session{}, fmt.Errorf("--account must be a hex address")
		}
		session.Account = common.HexToAddress(accountHex)
		return session, nil
	}

	service := discovery.NewService(
		NewRegistryClientFromConfig(),
		reader,
		discovery.FactoriesFromConfig(reader.Config()),
	)
	records, err := service.Discover(cmd.Context(), session.Signer)
	if err != nil {
		return wallet.Session{}, fmt.Errorf("account discovery failed: %w", err)
	}
	primary := discovery.Primary(records)
	if primary == nil {
		return wallet.Session{}, fmt.Errorf("no account found for signer %s; pass --account", session.Signer.Hex())
	}
	session.Account = primary.Address
	return session, nil
}

// NewRegistryClientFromConfig builds the registry client, or nil when the
// registry is disabled.
func NewRegistryClientFromConfig() *discovery.RegistryClient {
	url := viper.GetString("registry_url")
	if url == "" {
		return nil
	}
	return discovery.NewRegistryClient(url)
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("signer", "", "signer address (the secure element's key)")
	cmd.Flags().String("account", "", "contract account address (discovered when omitted)")
	_ = cmd.MarkFlagRequired("signer")
}

func logger() *zap.Logger {
	log, err := telemetry.NewLogger(viper.GetBool("log_json"))
	if err != nil {
		return zap.NewNop()
	}
	return log
}
