package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voltaic-labs/tapwallet/internal/signer"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage local signing keys",
	Long: `Manages the encrypted keystore used when no secure element is present.
Keys created here stand in for the NFC card during development and testing.`,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new encrypted key",
	Args:  cobra.NoArgs,
	RunE:  runKeysCreate,
}

var keysImportCmd = &cobra.Command{
	Use:   "import <private-key-hex>",
	Short: "Import a raw private key into the keystore",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysImport,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keystore addresses",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysImportCmd, keysListCmd)
}

func promptNewPassword() (string, error) {
	password, err := readPassword("New keystore password: ")
	if err != nil {
		return "", err
	}
	repeat, err := readPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if password != repeat {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	ks, err := signer.OpenKeystore(dataDir())
	if err != nil {
		return err
	}
	password, err := promptNewPassword()
	if err != nil {
		return err
	}

	account, err := ks.Create(password)
	if err != nil {
		return err
	}
	fmt.Printf("%s created %s\n", successStyle.Render(symbolCheck), account.Address.Hex())
	return nil
}

func runKeysImport(cmd *cobra.Command, args []string) error {
	ks, err := signer.OpenKeystore(dataDir())
	if err != nil {
		return err
	}
	password, err := promptNewPassword()
	if err != nil {
		return err
	}

	account, err := ks.Import(args[0], password)
	if err != nil {
		return err
	}
	fmt.Printf("%s imported %s\n", successStyle.Render(symbolCheck), account.Address.Hex())
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	ks, err := signer.OpenKeystore(dataDir())
	if err != nil {
		return err
	}

	addresses := ks.Addresses()
	if len(addresses) == 0 {
		fmt.Println(dimStyle.Render("keystore is empty; run \"tapwallet keys create\""))
		return nil
	}
	fmt.Println(titleStyle.Render("Keystore"))
	for _, addr := range addresses {
		fmt.Printf("  %s %s\n", symbolBullet, addr.Hex())
	}
	return nil
}
