package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ij369/ipa-harbor-sub000/internal/app/taskmgr"
	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

func init() {
	downloadCmd.Flags().StringVar(&downloadBundle, "bundle", "", "Bundle identifier of the app (required)")
	downloadCmd.Flags().StringVar(&downloadResolved, "resolved-version", "", "Concrete version id when VERSION is \"latest\"")
	downloadCmd.MarkFlagRequired("bundle")

	rootCmd.AddCommand(downloadCmd, tasksCmd, progressCmd, rmCmd, clearCmd)
}

var (
	downloadBundle   string
	downloadResolved string
)

var downloadCmd = &cobra.Command{
	Use:   "download APP_ID [VERSION_ID]",
	Short: "Queue an IPA download",
	Long: `Queue a download for APP_ID. VERSION_ID defaults to "latest".
An existing task for the same app and version is replaced.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	req := taskmgr.CreateRequest{
		AppID:             args[0],
		VersionID:         domain.LatestVersion,
		BundleID:          downloadBundle,
		ResolvedVersionID: downloadResolved,
	}
	if len(args) == 2 {
		req.VersionID = args[1]
	}

	task, err := newClient().CreateTask(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Printf("Queued %s (%s) as task %s [%s]\n", task.Key(), task.BundleID, task.ID, task.Status)
	return nil
}

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"ps"},
	Short:   "List download tasks by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListTasks(cmd.Context())
		if err != nil {
			return err
		}
		return printTaskList(os.Stdout, list)
	},
}

func printTaskList(out io.Writer, list domain.TaskList) error {
	if list.Summary.Total == 0 {
		fmt.Fprintln(out, "No tasks. Run 'harbor download <app-id> --bundle <id>' to queue one.")
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tAPP\tVERSION\tSTATUS\tPROGRESS\tCREATED\tERROR")
	for _, group := range [][]domain.TaskView{list.Running, list.Pending, list.Completed, list.Failed} {
		for _, t := range group {
			errText := t.Error
			if t.ErrorKind != domain.ErrorNone {
				errText = string(t.ErrorKind) + ": " + t.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\t%s\n",
				shortID(t.ID),
				t.AppID,
				t.VersionID,
				t.Status,
				t.Progress.Percentage,
				formatTime(t.CreatedAt),
				errText,
			)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	s := list.Summary
	fmt.Fprintf(out, "\n%d total: %d running, %d pending, %d completed, %d failed\n",
		s.Total, s.Running, s.Pending, s.Completed, s.Failed)
	return nil
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show progress of running and pending tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		snaps, err := newClient().Progress(cmd.Context())
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("Nothing in flight.")
			return nil
		}
		w := newTable(os.Stdout)
		fmt.Fprintln(w, "ID\tFILE\tSTATUS\tPERCENT\tSIZE\tSPEED")
		for _, s := range snaps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
				shortID(s.TaskID),
				s.FileName,
				s.Status,
				s.Progress.Percentage,
				s.Progress.SizeProgress,
				s.Progress.DownloadSpeed,
			)
		}
		return w.Flush()
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm TASK_ID",
	Short: "Delete a task, stopping it if running, and remove its artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteTask(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed task %s\n", args[0])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every task and every artifact on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().ClearAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Cleared all tasks and artifacts.")
		return nil
	},
}
