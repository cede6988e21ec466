package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/photobridge/internal/cli/output"
	"github.com/marmos91/photobridge/pkg/api/handlers"
	"github.com/marmos91/photobridge/pkg/config"
	"github.com/marmos91/photobridge/pkg/fallback/fs"
	"github.com/marmos91/photobridge/pkg/fallback/memory"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

func TestBuildFallback(t *testing.T) {
	ctx := context.Background()

	sink, err := buildFallback(ctx, &config.FallbackConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Sink{}, sink)

	dir := t.TempDir()
	sink, err = buildFallback(ctx, &config.FallbackConfig{Type: "fs", FS: config.FSFallbackConfig{Dir: dir}})
	require.NoError(t, err)
	require.IsType(t, &fs.Sink{}, sink)

	loc, err := sink.Persist(ctx, "image-1", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Contains(t, loc, dir)

	_, err = buildFallback(ctx, &config.FallbackConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestOpenJournal_Disabled(t *testing.T) {
	store, err := openJournal(&config.JournalConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestOpenJournal_Enabled(t *testing.T) {
	store, err := openJournal(&config.JournalConfig{Enabled: true, Path: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())
}

func TestBuildPipeline(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Album.ID = "album-1"

	p, err := buildPipeline(cfg, memory.New(), nil)
	require.NoError(t, err)

	require.NoError(t, p.EnqueueContent(pipeline.ContentReference{
		ID:       "m-1",
		Kind:     pipeline.KindImage,
		Provider: pipeline.ProviderLine,
	}))
	assert.Equal(t, 1, p.Stats().DownloadQueue)
}

func TestStatusFields(t *testing.T) {
	status := &handlers.StatusResponse{
		Service: handlers.ServiceInfo{Version: "1.0.0", AlbumID: "album-1"},
		Stats: pipeline.Stats{
			DownloadQueue: 2,
			MaxDownloads:  5,
			Counters:      pipeline.CounterStats{Delivered: 7},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, output.NewPrinter(&buf, output.FormatTable, false).Print(status, statusFields(status)))

	out := buf.String()
	assert.Contains(t, out, "album-1")
	assert.Contains(t, out, "Download queue")
	assert.Contains(t, out, "0/5")
	assert.NotContains(t, out, "Unattributable")
}

func TestBufferedTable_SortedByAlbum(t *testing.T) {
	table := bufferedTable(map[string]int{"b": 1, "a": 2})
	assert.Equal(t, [][]string{{"a", "2"}, {"b", "1"}}, table.Rows())
}

func TestNewAPIClient_Flags(t *testing.T) {
	serverURL, apiToken = "http://example:9000", "tok"
	t.Cleanup(func() { serverURL, apiToken = "", "" })

	client, err := newAPIClient()
	require.NoError(t, err)
	assert.Equal(t, "http://example:9000", client.BaseURL())
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionShort = true
	t.Cleanup(func() { versionShort = false })
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, Version+"\n", buf.String())
}
