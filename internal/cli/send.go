package cli

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/voltaic-labs/tapwallet/internal/wallet"
)

var sendCmd = &cobra.Command{
	Use:   "send <recipient> <amount>",
	Short: "Send native currency from the account",
	Args:  cobra.ExactArgs(2),
	RunE:  runSend,
}

var tokenSendCmd = &cobra.Command{
	Use:   "token-send <token> <recipient> <amount>",
	Short: "Send an ERC-20 token from the account",
	Args:  cobra.ExactArgs(3),
	RunE:  runTokenSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(tokenSendCmd)

	for _, cmd := range []*cobra.Command{sendCmd, tokenSendCmd} {
		addSessionFlags(cmd)
		cmd.Flags().Bool("dry-run", false, "prepare and print the plan without signing")
		cmd.Flags().Bool("no-wait", false, "do not wait for the transaction to be mined")
	}
	tokenSendCmd.Flags().Int32("decimals", 18, "token decimals")
}

func runSend(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("recipient must be a hex address")
	}
	amount, err := ParseAmount(args[1], 18)
	if err != nil {
		return err
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
		return pipeline.PrepareNativeTransfer(ctx, session, common.HexToAddress(args[0]), amount)
	})
	if err != nil {
		return err
	}
	return runPreparedFlow(cmd, reader, session, prepared)
}

func runTokenSend(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("token must be a hex address")
	}
	if !common.IsHexAddress(args[1]) {
		return fmt.Errorf("recipient must be a hex address")
	}
	decimals, _ := cmd.Flags().GetInt32("decimals")
	amount, err := ParseAmount(args[2], decimals)
	if err != nil {
		return err
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
		return pipeline.PrepareTokenTransfer(ctx, session, common.HexToAddress(args[0]), common.HexToAddress(args[1]), amount)
	})
	if err != nil {
		return err
	}
	return runPreparedFlow(cmd, reader, session, prepared)
}
