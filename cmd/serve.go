package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ccdash/internal/api"
	"ccdash/internal/metrics"
	"ccdash/internal/watcher"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
	serveOpen bool
)

const shutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default from config, 127.0.0.1)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from config, 3001)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the dashboard in a browser")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP API",
	Long: `Run the local dashboard API.

The server watches the Claude directory and reports a new version whenever a
configuration file changes. SIGHUP forces a version bump.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveHost != "" {
			appCfg.Host = serveHost
		}
		if servePort != 0 {
			appCfg.Port = servePort
		}
		if appCfg.Logging.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		manager := newManager()
		svc, store, err := newUsageService()
		if err != nil {
			return err
		}
		defer store.Close()

		w := watcher.New(manager.Dir())
		if err := w.Start(ctx); err != nil {
			warn(cmd, "Directory watcher unavailable: %v", err)
		}
		defer w.Close()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hup:
					log.Info("received SIGHUP, bumping configuration version")
					w.Bump()
				}
			}
		}()

		server := api.NewServer(api.Options{
			Addr:        appCfg.Addr(),
			CORSOrigins: appCfg.CORSOrigins,
		}, manager, svc, metrics.New(manager), w)

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		url := fmt.Sprintf("http://%s", server.Addr())
		fmt.Fprintf(cmd.OutOrStdout(), "Dashboard API listening on %s\n", url)
		if serveOpen {
			if err := open.Start(url + "/health"); err != nil {
				warn(cmd, "Failed to open browser: %v", err)
			}
		}

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		log.Info("dashboard API stopped")
		return <-errCh
	},
}
