package pipeline

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	DownloadQueue   int            `json:"download_queue"`
	UploadQueue     int            `json:"upload_queue"`
	BufferedTokens  map[string]int `json:"buffered_tokens"`
	HistorySize     int            `json:"history_size"`
	HistoryCapacity int            `json:"history_capacity"`
	ActiveDownloads int            `json:"active_downloads"`
	ActiveUploads   int            `json:"active_uploads"`
	MaxDownloads    int            `json:"max_downloads"`
	MaxUploads      int            `json:"max_uploads"`
	Counters        CounterStats   `json:"counters"`
}

// CounterStats are cumulative counts since the pipeline was created.
type CounterStats struct {
	Accepted       int64 `json:"accepted"`
	Rejected       int64 `json:"rejected"`
	Fetched        int64 `json:"fetched"`
	FetchRetries   int64 `json:"fetch_retries"`
	FetchFailures  int64 `json:"fetch_failures"`
	Dropped        int64 `json:"dropped"`
	Uploaded       int64 `json:"uploaded"`
	UploadRetries  int64 `json:"upload_retries"`
	Delivered      int64 `json:"delivered"`
	CommitRetries  int64 `json:"commit_retries"`
	Fallbacks      int64 `json:"fallbacks"`
	FallbackErrors int64 `json:"fallback_errors"`
	Unattributable int64 `json:"unattributable"`
}

// Stats returns the current queue depths, buffers and counters.
func (p *Pipeline) Stats() Stats {
	buffered := make(map[string]int)
	for dest, tokens := range p.tokens.Snapshot() {
		buffered[dest] = len(tokens)
	}

	c := &p.counters
	return Stats{
		DownloadQueue:   p.downloads.Len(),
		UploadQueue:     p.uploads.Len(),
		BufferedTokens:  buffered,
		HistorySize:     p.history.Len(),
		HistoryCapacity: p.history.Cap(),
		ActiveDownloads: p.downloadSlots.Active(),
		ActiveUploads:   p.uploadSlots.Active(),
		MaxDownloads:    p.downloadSlots.Capacity(),
		MaxUploads:      p.uploadSlots.Capacity(),
		Counters: CounterStats{
			Accepted:       c.accepted.Load(),
			Rejected:       c.rejected.Load(),
			Fetched:        c.fetched.Load(),
			FetchRetries:   c.fetchRetries.Load(),
			FetchFailures:  c.fetchFailures.Load(),
			Dropped:        c.dropped.Load(),
			Uploaded:       c.uploaded.Load(),
			UploadRetries:  c.uploadRetries.Load(),
			Delivered:      c.delivered.Load(),
			CommitRetries:  c.commitRetries.Load(),
			Fallbacks:      c.fallbacks.Load(),
			FallbackErrors: c.fallbackErrors.Load(),
			Unattributable: c.unattributable.Load(),
		},
	}
}

// History returns the history ring, oldest entry first.
func (p *Pipeline) History() []HistoryEntry {
	return p.history.Entries()
}
