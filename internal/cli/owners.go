package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voltaic-labs/tapwallet/internal/wallet"
)

var ownersCmd = &cobra.Command{
	Use:   "owners",
	Short: "Inspect and rotate the account's owner set",
}

var ownersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the account's registered owners",
	Args:  cobra.NoArgs,
	RunE:  runOwnersList,
}

var ownersAddCmd = &cobra.Command{
	Use:   "add <owner>",
	Short: "Register a new owner on the account",
	Long: `Registers an owner key on the account. The owner may be a 20-byte
address or a 64/65-byte secp256k1 public key, hex encoded.`,
	Args: cobra.ExactArgs(1),
	RunE: runOwnersAdd,
}

var ownersRemoveCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove an owner from the account by index",
	Long: `Removes the owner at the given index. The current owner bytes at that
index are fetched and pinned into the call, so the transaction reverts if
the owner set changed between lookup and execution.`,
	Args: cobra.ExactArgs(1),
	RunE: runOwnersRemove,
}

func init() {
	rootCmd.AddCommand(ownersCmd)
	ownersCmd.AddCommand(ownersListCmd, ownersAddCmd, ownersRemoveCmd)

	addSessionFlags(ownersListCmd)
	for _, cmd := range []*cobra.Command{ownersAddCmd, ownersRemoveCmd} {
		addSessionFlags(cmd)
		cmd.Flags().Bool("dry-run", false, "prepare and print the plan without signing")
		cmd.Flags().Bool("no-wait", false, "do not wait for the transaction to be mined")
	}
}

func runOwnersList(cmd *cobra.Command, args []string) error {
	reader, err := chainReader()
	if err != nil {
		return err
	}
	session, err := resolveSession(cmd, reader)
	if err != nil {
		return err
	}

	owners, err := wallet.FetchOwners(cmd.Context(), reader, session.Account)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Owners of %s", session.Account.Hex())))
	for _, o := range owners {
		marker := "  "
		if o.Address == session.Signer {
			marker = successStyle.Render(symbolCheck) + " "
		}
		kind := "address"
		if len(o.Raw) > 20 {
			kind = "pubkey"
		}
		fmt.Printf("%s[%d] %s  %s\n", marker, o.Index, o.Address.Hex(), dimStyle.Render(kind))
	}
	return nil
}

func runOwnersAdd(cmd *cobra.Command, args []string) error {
	ownerBytes, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
	if err != nil {
		return fmt.Errorf("owner must be hex encoded: %w", err)
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
		return pipeline.PrepareOwnerAdd(ctx, session, ownerBytes)
	})
	if err != nil {
		return err
	}
	return runPreparedFlow(cmd, reader, session, prepared)
}

func runOwnersRemove(cmd *cobra.Command, args []string) error {
	index, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("index must be a non-negative integer")
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

	owners, err := wallet.FetchOwners(cmd.Context(), reader, session.Account)
	if err != nil {
		return err
	}
	var (
		ownerBytes []byte
		ownerAddr  string
	)
	for _, o := range owners {
		if o.Index == index {
			ownerBytes = o.Raw
			ownerAddr = o.Address.Hex()
			break
		}
	}
	if ownerBytes == nil {
		return fmt.Errorf("no owner at index %d", index)
	}
	if !confirm(fmt.Sprintf("Remove owner %s at index %d?", ownerAddr, index)) {
		fmt.Println(dimStyle.Render("aborted"))
		return nil
	}

	prepared, err := prepareWithRetry(cmd.Context(), func(ctx context.Context) (*wallet.Prepared, error) {
		return pipeline.PrepareOwnerRemove(ctx, session, index, ownerBytes)
	})
	if err != nil {
		return err
	}
	return runPreparedFlow(cmd, reader, session, prepared)
}
