package cmd

import (
	"fmt"

	"ccdash/config/models"

	"github.com/spf13/cobra"
)

var pruneKeep int

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd, backupPruneCmd)
	backupPruneCmd.Flags().IntVar(&pruneKeep, "keep", 10, "Number of most recent backups to keep")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage timestamped backups of settings.json",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Back up the active settings.json",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := newManager().CreateBackup()
		if err != nil {
			return err
		}
		if name == models.NoBackup {
			warn(cmd, "No active configuration to back up")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Backup created: "+name))
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List backups, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newManager().ListBackups()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "No backups found")
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [name]",
	Short: "Restore settings.json from a backup",
	Long:  "Restore settings.json from a backup. The current settings.json is backed up first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		safety, err := newManager().RestoreBackup(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render("✓ Restored: "+args[0]))
		if safety != models.NoBackup {
			fmt.Fprintf(out, "  Previous settings saved as: %s\n", safety)
		}
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the most recent backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneKeep < 0 {
			return models.E(models.KindInvalidInput, "prune", "", fmt.Errorf("--keep must not be negative"))
		}
		removed, err := newManager().PruneBackups(pruneKeep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d backup(s)\n", len(removed))
		return nil
	},
}
