package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voltaic-labs/tapwallet/internal/discovery"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts <signer>",
	Short: "Discover contract accounts controlled by a signer",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.Flags().Bool("no-registry", false, "skip the remote registry and derive on-chain only")
}

func runAccounts(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("signer must be a hex address")
	}
	owner := common.HexToAddress(args[0])

	reader, err := chainReader()
	if err != nil {
		return err
	}

	registry := NewRegistryClientFromConfig()
	if skip, _ := cmd.Flags().GetBool("no-registry"); skip {
		registry = nil
	}

	service := discovery.NewService(registry, reader, discovery.FactoriesFromConfig(reader.Config()))
	records, err := service.Discover(cmd.Context(), owner)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	logger().Debug("discovery complete",
		zap.String("signer", owner.Hex()),
		zap.Int("accounts", len(records)))

	if len(records) == 0 {
		fmt.Println(dimStyle.Render("no accounts found for " + owner.Hex()))
		return nil
	}

	primary := discovery.Primary(records)
	fmt.Println(titleStyle.Render(fmt.Sprintf("Accounts for %s on %s", owner.Hex(), reader.Config().Name)))
	for _, rec := range records {
		marker := "  "
		if primary != nil && rec.Address == primary.Address {
			marker = successStyle.Render(symbolCheck) + " "
		}
		fmt.Printf("%s%s  factory=%s  index=%d\n",
			marker, rec.Address.Hex(), rec.FactoryVersion, rec.DerivationNonce)
	}
	return nil
}
