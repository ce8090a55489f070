package cmd

import (
	"fmt"
	"io"

	"ccdash/config"
	"ccdash/internal/appconfig"
	"ccdash/internal/logging"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Version information
var (
	version = "dev"
	commit  string
	date    string
)

// SetVersionInfo sets the version information
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

var (
	cfgFile   string
	claudeDir string
	logLevel  string

	appCfg    *appconfig.Config
	logCloser io.Closer
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var rootCmd = &cobra.Command{
	Use:   "ccdash",
	Short: "Claude Code configuration switcher and usage dashboard",
	Long: `ccdash manages the settings files in your Claude Code configuration directory.

Each provider configuration lives next to settings.json as settings.json.<id>.
Switching archives the active file under its own id and copies the target into
settings.json, so Claude Code picks it up on the next start.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadAppConfig,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "ccdash config file (default $XDG_CONFIG_HOME/ccdash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&claudeDir, "claude-dir", "", "Claude configuration directory (default ~/.claude)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadAppConfig resolves settings from file, environment and flags, in that
// order, then configures logging.
func loadAppConfig(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load(cfgFile)
	if err != nil {
		return err
	}
	if claudeDir != "" {
		cfg.ClaudeDir = claudeDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		return err
	}
	appCfg = cfg
	logCloser = closer
	return nil
}

// newManager creates a Manager for the configured directory.
func newManager() *config.Manager {
	m := config.NewManager(appCfg.ClaudeDir)
	m.SetBackupRetention(appCfg.BackupRetention)
	return m
}

// warn prints a warning line to stderr
func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("⚠️  "+fmt.Sprintf(format, args...)))
}

// Execute executes the root command
func Execute() error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`ccdash {{.Version}}
Commit: ` + commit + `
Date: ` + date + `
`)
	return rootCmd.Execute()
}
