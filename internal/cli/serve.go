package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ij369/ipa-harbor-sub000/internal/daemon"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().IntVar(&serveMaxConcurrent, "max-concurrent", 0, "Concurrent downloads (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost          string
	servePort          int
	serveMaxConcurrent int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Harbor daemon",
	Long:  `Start the task API, event stream and download workers at localhost:8080.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}

	// Override config from flags
	if serveHost != "" {
		cfg.API.Host = serveHost
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}
	if serveMaxConcurrent > 0 {
		cfg.Downloader.MaxConcurrent = serveMaxConcurrent
	}

	d, err := daemon.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	return d.Serve(context.Background())
}
