package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listJSON bool

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the list as JSON")
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all configurations",
	Long:    "List every configuration in the Claude directory, the active one first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := newManager().List()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if listJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summaries)
		}

		if len(summaries) == 0 {
			fmt.Fprintf(out, "No configurations found in %s\n", appCfg.ClaudeDir)
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  ID\tNAME\tMODEL\tBASE URL\tFILE")
		for _, s := range summaries {
			marker := " "
			if s.IsActive {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%s\n", marker, s.ID, s.Name, s.Preview.Model, s.Preview.BaseURL, s.File)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if summaries[0].IsActive {
			fmt.Fprintln(out, dimStyle.Render("\n* indicates the currently active configuration"))
		}
		return nil
	},
}
