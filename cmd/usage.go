package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"ccdash/internal/usage"

	"github.com/spf13/cobra"
)

var (
	usageDate string
	usageJSON bool
)

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.Flags().StringVar(&usageDate, "date", "", "Reference date YYYY-MM-DD (default today)")
	usageCmd.Flags().BoolVar(&usageJSON, "json", false, "Print the dashboard as JSON")
}

// newUsageService opens the usage history database and wraps it with the
// ccusage client. Callers close the returned store.
func newUsageService() (*usage.Service, *usage.Store, error) {
	store, err := usage.OpenStore(appCfg.Database)
	if err != nil {
		return nil, nil, err
	}
	client := usage.NewClient(appCfg.CCUsageCommand, appCfg.Timeout(), nil)
	return usage.NewService(client, store), store, nil
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show token usage and cost",
	Long: `Show today's, this week's and this month's token usage.

Figures come from ccusage when it is installed, otherwise from the local usage
history database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, store, err := newUsageService()
		if err != nil {
			return err
		}
		defer store.Close()

		dash, err := svc.Dashboard(cmd.Context(), usageDate)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if usageJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(dash)
		}
		return printDashboard(out, dash)
	},
}

func printDashboard(out io.Writer, dash *usage.Dashboard) error {
	if dash.Source == usage.SourceNone {
		fmt.Fprintln(out, dimStyle.Render("No usage source available, install ccusage to see usage"))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PERIOD\tTOKENS\tCOST\tSESSIONS\tTREND\t")
	rows := []struct {
		label string
		stats usage.Statistics
		trend *float64
	}{
		{"today", dash.TodayUsage, nil},
		{"7 days", dash.WeeklyUsage, dash.WeeklyUsage.WeeklyTrend},
		{"30 days", dash.MonthlyUsage, dash.MonthlyUsage.MonthlyTrend},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t$%.2f\t%d\t%s\t\n", r.label, r.stats.TotalTokens, r.stats.TotalCost, r.stats.SessionCount, formatTrend(r.trend))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(dash.TopProjects) > 0 {
		fmt.Fprintln(out, "\nTop projects:")
		for _, p := range dash.TopProjects {
			fmt.Fprintf(out, "  %-30s %10d tokens  $%.2f\n", p.ProjectName, p.TotalTokens, p.TotalCost)
		}
	}
	fmt.Fprintln(out, dimStyle.Render("\nSource: "+dash.Source))
	return nil
}

func formatTrend(trend *float64) string {
	if trend == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", *trend)
}
