package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/photobridge/internal/cli/output"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a pipeline cycle now",
	Long: `Trigger a cycle on a running instance without waiting for its ticker.

The command blocks until the cycle finishes. A cycle that is already running
is reported as busy.`,
}

var cycleDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch queued content references",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printer, err := newPrinter()
		if err != nil {
			return err
		}
		res, err := client.RunDownloadCycle(cmd.Context())
		if err != nil {
			return fmt.Errorf("download cycle failed: %w", err)
		}
		return printer.Print(res, downloadFields(res))
	},
}

var cycleUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload queued items and commit buffered tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printer, err := newPrinter()
		if err != nil {
			return err
		}
		res, err := client.RunUploadCycle(cmd.Context())
		if err != nil {
			return fmt.Errorf("upload cycle failed: %w", err)
		}
		return printer.Print(res, uploadFields(res))
	},
}

func init() {
	cycleCmd.AddCommand(cycleDownloadCmd)
	cycleCmd.AddCommand(cycleUploadCmd)
}

func downloadFields(r *pipeline.DownloadCycleResult) output.Fields {
	var f output.Fields
	f.Add("Popped", r.Popped)
	f.Add("Fetched", r.Fetched)
	f.Add("Requeued", r.Requeued)
	f.Add("Dropped", r.Dropped)
	f.Add("Failed", r.Failed)
	return f
}

func uploadFields(r *pipeline.UploadCycleResult) output.Fields {
	var f output.Fields
	f.Add("Dispatched", r.Dispatched)
	f.Add("Succeeded", r.Succeeded)
	f.Add("Retried", r.Retried)
	f.Add("Failed", r.Failed)
	f.Add("Lost", r.Lost)
	f.Add("Cancelled", r.Cancelled)
	f.Add("Batches", r.Commit.Batches)
	f.Add("Delivered", r.Commit.Delivered)
	f.Add("Commit retries", r.Commit.Retried)
	f.Add("Commit failures", r.Commit.Failed+r.Commit.TransportErrors)
	return f
}
