package cli

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/voltaic-labs/tapwallet/internal/ens"
	"github.com/voltaic-labs/tapwallet/internal/wallet"
)

var nftCmd = &cobra.Command{
	Use:   "nft",
	Short: "Transfer collectibles and ENS names",
}

var nftTransferCmd = &cobra.Command{
	Use:   "transfer <collection> <recipient> <token-id>",
	Short: "Transfer a collectible out of the account",
	Long: `Transfers an ERC-721 or ERC-1155 asset. ENS names are recognized and
transferred completely: resolver record, registry authority and token move
together in one atomic batch.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runNFTTransfer,
}

func init() {
	rootCmd.AddCommand(nftCmd)
	nftCmd.AddCommand(nftTransferCmd)

	addSessionFlags(nftTransferCmd)
	nftTransferCmd.Flags().Bool("dry-run", false, "prepare and print the plan without signing")
	nftTransferCmd.Flags().Bool("no-wait", false, "do not wait for the transaction to be mined")
	nftTransferCmd.Flags().String("ens-name", "", "ENS label (e.g. \"alice\" for alice.eth) to derive the token id from")
}

func runNFTTransfer(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("collection must be a hex address")
	}
	if !common.IsHexAddress(args[1]) {
		return fmt.Errorf("recipient must be a hex address")
	}

	var id *big.Int
	if label, _ := cmd.Flags().GetString("ens-name"); label != "" {
		id = ens.Labelhash(label).Big()
	} else {
		if len(args) < 3 {
			return fmt.Errorf("token id required unless --ens-name is given")
		}
		var ok bool
		id, ok = new(big.Int).SetString(args[2], 10)
		if !ok {
			return fmt.Errorf("token id must be a decimal integer")
		}
	}

	reader, err := chainReader()
	if err != nil {
		return err
	}
	session, err := resolveSession(cmd, reader)
	if err != nil {
		return err
	}
	pipeline, err := newPipeline(reader)
	if err != nil {
		return err
	}

	prepared, err := prepareWithRetry(cmd.Context(), func(ctx context.Context) (*wallet.Prepared, error) {
		return pipeline.PrepareCollectibleTransfer(ctx, session, common.HexToAddress(args[0]), common.HexToAddress(args[1]), id)
	})
	if err != nil {
		return err
	}
	return runPreparedFlow(cmd, reader, session, prepared)
}
