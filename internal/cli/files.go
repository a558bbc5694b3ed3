package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

func init() {
	watchCmd.Flags().StringVar(&watchChannel, "channel", domain.DefaultChannel, "Event channel to follow")
	filesCmd.AddCommand(fileInfoCmd, fileRmCmd)
	rootCmd.AddCommand(filesCmd, watchCmd)
}

var filesCmd = &cobra.Command{
	Use:     "files",
	Aliases: []string{"ls"},
	Short:   "List downloaded artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := newClient().ListFiles(cmd.Context())
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No artifacts downloaded yet.")
			return nil
		}
		w := newTable(os.Stdout)
		fmt.Fprintln(w, "NAME\tSIZE\tMETADATA\tMODIFIED")
		for _, f := range files {
			meta := "-"
			if f.HasSidecar {
				meta = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Name, humanSize(f.SizeBytes), meta, formatTime(f.ModifiedAt))
		}
		return w.Flush()
	},
}

var fileInfoCmd = &cobra.Command{
	Use:   "info NAME",
	Short: "Show app metadata of an artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := newClient().Metadata(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Name:        %s\n", meta.Name)
		fmt.Printf("Bundle ID:   %s\n", meta.BundleID)
		fmt.Printf("Version:     %s (%s)\n", meta.Version, meta.Build)
		if meta.MinimumOSVersion != "" {
			fmt.Printf("Minimum iOS: %s\n", meta.MinimumOSVersion)
		}
		fmt.Printf("File:        %s (%s)\n", meta.FileName, humanSize(meta.FileSize))
		return nil
	},
}

var fileRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete an artifact and every task that produces it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newClient().DeleteFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Removed %s (%d task(s))\n", args[0], n)
		return nil
	},
}

var watchChannel string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow completion events from the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "Watching channel %q (Ctrl-C to stop)\n", watchChannel)
		err := newClient().Events(ctx, watchChannel, func(ev domain.Event) error {
			if ev.Type != domain.EventTaskCompleted {
				fmt.Printf("%s %s\n", ev.Type, ev.Data)
				return nil
			}
			var p domain.CompletionPayload
			if err := json.Unmarshal([]byte(ev.Data), &p); err != nil {
				fmt.Printf("%s %s\n", ev.Type, ev.Data)
				return nil
			}
			if p.Success && p.Data != nil {
				fmt.Printf("✓ %s %s %s (%s)\n", p.FileName, p.Data.Name, p.Data.Version, p.Data.BundleID)
			} else {
				fmt.Printf("✓ %s (%s: %s)\n", p.FileName, p.Message, p.Error)
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
