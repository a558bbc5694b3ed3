// Package cli implements the Harbor command-line interface using Cobra.
// "serve" runs the daemon; every other subcommand talks to it over HTTP.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ij369/ipa-harbor-sub000/internal/api"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "harbor",
	Short: "Harbor queues and tracks IPA downloads",
	Long: `Harbor runs ipatool downloads behind a small HTTP API.
Tasks are queued per app version, run with bounded concurrency, and
completed artifacts are announced on a live event stream.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("HARBOR_SERVER", "http://127.0.0.1:8080"),
		"Harbor daemon URL")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	api.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
