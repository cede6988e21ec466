package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/photobridge/internal/cli/output"
	"github.com/marmos91/photobridge/pkg/api/handlers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline status",
	Long: `Display queue depths, buffered tokens and counters of a running instance.

Examples:
  # Show status of the local instance
  photobridge status

  # Output as JSON
  photobridge status -o json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	printer, err := newPrinter()
	if err != nil {
		return err
	}

	status, err := client.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status from %s: %w", client.BaseURL(), err)
	}

	if err := printer.Print(status, statusFields(status)); err != nil {
		return err
	}
	if printer.Format() == output.FormatTable && len(status.Stats.BufferedTokens) > 0 {
		printer.Println()
		return printer.Print(nil, bufferedTable(status.Stats.BufferedTokens))
	}
	return nil
}

// statusFields is the table form of a status response.
func statusFields(s *handlers.StatusResponse) output.Fields {
	st := s.Stats
	c := st.Counters

	var f output.Fields
	f.Add("Version", s.Service.Version)
	if s.Service.AlbumID != "" {
		f.Add("Album", s.Service.AlbumID)
	}
	if s.Service.AlbumShareURL != "" {
		f.Add("Album link", s.Service.AlbumShareURL)
	}
	f.Add("Download queue", st.DownloadQueue)
	f.Add("Upload queue", st.UploadQueue)
	f.Add("Downloads", fmt.Sprintf("%d/%d", st.ActiveDownloads, st.MaxDownloads))
	f.Add("Uploads", fmt.Sprintf("%d/%d", st.ActiveUploads, st.MaxUploads))
	f.Add("History", fmt.Sprintf("%d/%d", st.HistorySize, st.HistoryCapacity))
	f.Add("Accepted", c.Accepted)
	f.Add("Delivered", c.Delivered)
	f.Add("Fallbacks", c.Fallbacks)
	f.Add("Dropped", c.Dropped)
	f.Add("Retries", fmt.Sprintf("fetch=%d upload=%d commit=%d", c.FetchRetries, c.UploadRetries, c.CommitRetries))
	if c.Unattributable > 0 {
		f.Add("Unattributable", c.Unattributable)
	}
	return f
}

func bufferedTable(buffered map[string]int) *output.Table {
	albums := make([]string, 0, len(buffered))
	for album := range buffered {
		albums = append(albums, album)
	}
	sort.Strings(albums)

	t := output.NewTable("Album", "Buffered tokens")
	for _, album := range albums {
		t.AddRow(album, strconv.Itoa(buffered[album]))
	}
	return t
}
