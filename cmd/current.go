package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(currentCmd)
}

var currentCmd = &cobra.Command{
	Use:     "current",
	Aliases: []string{"status"},
	Short:   "Show the active configuration",
	Long:    "Show the configuration currently in settings.json",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := newManager().Current()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if current == nil {
			fmt.Fprintln(out, "No active configuration")
			fmt.Fprintln(out, dimStyle.Render("\n💡 Run 'ccdash list' and 'ccdash switch <id>' to activate one"))
			return nil
		}

		fmt.Fprintln(out, "Active configuration:")
		fmt.Fprintf(out, "  ID:       %s\n", current.ID)
		fmt.Fprintf(out, "  Name:     %s\n", current.Name)
		fmt.Fprintf(out, "  Model:    %s\n", current.Preview.Model)
		fmt.Fprintf(out, "  Base URL: %s\n", current.Preview.BaseURL)
		return nil
	},
}
