package cmd

import (
	"fmt"

	"ccdash/config/models"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(switchCmd)
}

var switchCmd = &cobra.Command{
	Use:   "switch [id]",
	Short: "Switch to the specified configuration",
	Long: `Make the specified configuration active by copying it into settings.json.

The configuration it replaces is archived as settings.json.<id>. A configuration
with no recognised id is saved as a timestamped backup instead. Restart Claude
Code for the change to take effect.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		receipt, err := newManager().Switch(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Switched to configuration: %s", receipt.Current)))
		if receipt.Previous != models.UnknownID {
			fmt.Fprintf(out, "  Previous: %s\n", receipt.Previous)
		}
		if receipt.BackupCreated != models.NoBackup {
			fmt.Fprintf(out, "  Saved as: %s\n", receipt.BackupCreated)
		}
		fmt.Fprintln(out, dimStyle.Render("\n💡 Restart Claude Code to use the new configuration"))
		return nil
	},
}
