package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List the configured chains",
	Args:  cobra.NoArgs,
	RunE:  runChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)
}

func runChains(cmd *cobra.Command, args []string) error {
	client := chainClient()

	names := client.ListChains()
	sort.Strings(names)

	fmt.Println(titleStyle.Render("Configured chains"))
	for _, name := range names {
		cfg, err := client.GetConfig(name)
		if err != nil {
			return err
		}
		marker := "  "
		if name == flagChain {
			marker = successStyle.Render(symbolCheck) + " "
		}
		line := fmt.Sprintf("%s%-14s %s (chain id %d)", marker, name, cfg.Name, cfg.ChainIDInt)
		if cfg.IsTestnet {
			line += dimStyle.Render("  testnet")
		}
		if cfg.HasENS() {
			line += dimStyle.Render("  ens")
		}
		fmt.Println(line)
	}
	return nil
}
