package config

import "github.com/marmos91/photobridge/pkg/pipeline"

// PipelineSettings converts the pipeline, album and scheduler sections into
// the pipeline package's configuration.
func (c *Config) PipelineSettings() pipeline.Config {
	p := c.Pipeline
	out := pipeline.Config{
		MaxDownloads:       p.MaxDownloads,
		MaxUploads:         p.MaxUploads,
		DownloadBatchSize:  p.DownloadBatchSize,
		MaxUploadItems:     p.MaxUploadItems,
		MaxBatchSize:       p.MaxBatchSize,
		MinContentSize:     int(p.MinContentSize),
		RetryFetchErrors:   p.RetryFetchErrors,
		UploadDelayMin:     p.UploadDelayMin,
		UploadDelayMax:     p.UploadDelayMax,
		HistoryCapacity:    p.HistoryCapacity,
		AcceptedProviders:  []string{pipeline.ProviderLine},
		DefaultDestination: c.Album.ID,
		DedupCacheSize:     p.DedupCacheSize,
		DedupWindow:        p.DedupWindow,
	}
	if p.MaxRetry != nil {
		out.MaxRetry = *p.MaxRetry
	}
	if p.DownloadMaxRetry != nil {
		out.DownloadMaxRetry = *p.DownloadMaxRetry
	}
	if p.MaxCommitAttempts != nil {
		out.MaxCommitAttempts = *p.MaxCommitAttempts
	}

	if len(p.RetryCodes) > 0 {
		out.RetryPredicate = pipeline.CodeIn(p.RetryCodes...)
	} else {
		out.RetryPredicate = pipeline.CodeAtLeast(p.RetryCodeThreshold)
	}

	for _, k := range p.AcceptedKinds {
		out.AcceptedKinds = append(out.AcceptedKinds, pipeline.MediaKind(k))
	}
	if len(c.Album.KindAlbums) > 0 {
		out.KindDestinations = make(map[pipeline.MediaKind]string, len(c.Album.KindAlbums))
		for k, album := range c.Album.KindAlbums {
			out.KindDestinations[pipeline.MediaKind(k)] = album
		}
	}
	return out
}

// SchedulerSettings converts the scheduler section.
func (c *Config) SchedulerSettings() pipeline.SchedulerConfig {
	return pipeline.SchedulerConfig{
		DownloadInterval: c.Scheduler.DownloadInterval,
		UploadInterval:   c.Scheduler.UploadInterval,
		RunOnStart:       c.Scheduler.RunOnStart,
	}
}
