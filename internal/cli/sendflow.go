package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voltaic-labs/tapwallet/internal/chain"
	"github.com/voltaic-labs/tapwallet/internal/signer"
	"github.com/voltaic-labs/tapwallet/internal/wallet"
)

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// printPrepared renders a prepared plan for review.
func printPrepared(prepared *wallet.Prepared, nativeSymbol string) {
	fmt.Println(titleStyle.Render("Prepared transaction"))
	for i, pc := range prepared.Calls {
		fmt.Printf("  %s step %d: %s %s\n", symbolArrow, i+1, pc.Label, dimStyle.Render(pc.Call.Target.Hex()))
	}
	if prepared.Plan.Batched {
		fmt.Println(dimStyle.Render("  steps execute as one atomic batch"))
	}
	for _, w := range prepared.Warnings {
		fmt.Printf("  %s %s\n", warnStyle.Render(symbolBullet), warnStyle.Render(w.Message))
	}

	fmt.Printf("  nonce:     %d\n", prepared.Plan.Nonce)
	fmt.Printf("  gas limit: %d\n", prepared.Plan.GasLimit)
	fmt.Printf("  max cost:  %s %s\n", FormatAmount(prepared.Plan.WorstCaseCost(), 18), nativeSymbol)
}

// signAndBroadcast turns a prepared plan into a broadcast transaction using
// the keystore signer. The plan is final at this point: signing changes
// nothing about it.
func signAndBroadcast(cmd *cobra.Command, reader *chain.Reader, session wallet.Session, prepared *wallet.Prepared) error {
	if !confirm("Sign and broadcast?") {
		fmt.Println(dimStyle.Render("aborted"))
		return nil
	}

	ks, err := signer.OpenKeystore(dataDir())
	if err != nil {
		return err
	}
	password, err := readPassword("Keystore password: ")
	if err != nil {
		return err
	}
	keySigner, err := ks.Unlock(session.Signer, password)
	if err != nil {
		return err
	}
	defer keySigner.Lock()

	signed, err := keySigner.SignTransaction(prepared.Plan.Unsigned(), prepared.Plan.ChainID)
	if err != nil {
		return fmt.Errorf("signing failed: %w", err)
	}

	if err := reader.SendTransaction(cmd.Context(), signed); err != nil {
		return fmt.Errorf("broadcast failed: %w", err)
	}

	fmt.Printf("%s broadcast %s\n", successStyle.Render(symbolCheck), signed.Hash().Hex())
	if reader.Config().ExplorerURL != "" {
		fmt.Println(dimStyle.Render(fmt.Sprintf("  %s/tx/%s", reader.Config().ExplorerURL, signed.Hash().Hex())))
	}

	if noWait, _ := cmd.Flags().GetBool("no-wait"); noWait {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	receipt, err := reader.WaitMined(waitCtx, signed.Hash())
	if err != nil {
		fmt.Println(dimStyle.Render("  still pending, check the explorer"))
		return nil
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		fmt.Printf("%s mined in block %d\n", successStyle.Render(symbolCheck), receipt.BlockNumber.Uint64())
	} else {
		fmt.Printf("%s reverted on-chain\n", errorStyle.Render(symbolCross))
	}
	return nil
}

// runPreparedFlow is the shared tail of every intent command: print, confirm,
// sign, broadcast. With --dry-run it stops after printing the plan.
func runPreparedFlow(cmd *cobra.Command, reader *chain.Reader, session wallet.Session, prepared *wallet.Prepared) error {
	printPrepared(prepared, reader.Config().NativeCurrency)

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return nil
	}
	return signAndBroadcast(cmd, reader, session, prepared)
}
