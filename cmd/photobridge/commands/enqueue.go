package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/photobridge/internal/cli/output"
	"github.com/marmos91/photobridge/pkg/api/handlers"
)

var (
	enqueueKind        string
	enqueueProvider    string
	enqueueDestination string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <message-id>",
	Short: "Queue a chat message's media for download",
	Long: `Submit a content reference to a running instance.

The media is downloaded on the next download cycle and uploaded to the
album selected by --destination, the album configured for its kind, or the
default album.

Examples:
  # Queue an image message
  photobridge enqueue 325708 --kind image

  # Queue a video into a specific album
  photobridge enqueue 325709 --kind video --destination AF1QipN...`,
	Args: cobra.ExactArgs(1),
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueKind, "kind", "image", "Media kind (image|video|audio|file)")
	enqueueCmd.Flags().StringVar(&enqueueProvider, "provider", "", "Content provider (default: line)")
	enqueueCmd.Flags().StringVar(&enqueueDestination, "destination", "", "Destination album id")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	printer, err := newPrinter()
	if err != nil {
		return err
	}

	accepted, err := client.Enqueue(cmd.Context(), handlers.ContentRequest{
		ID:          args[0],
		Kind:        enqueueKind,
		Provider:    enqueueProvider,
		Destination: enqueueDestination,
	})
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	if printer.Format() != output.FormatTable {
		return printer.Print(accepted, nil)
	}
	printer.Success(fmt.Sprintf("Queued %s (request %s)", accepted.Name, accepted.RequestID))
	return nil
}
