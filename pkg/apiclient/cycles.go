package apiclient

import (
	"context"

	"github.com/marmos91/photobridge/pkg/pipeline"
)

// RunDownloadCycle triggers a download cycle and waits for its result.
func (c *Client) RunDownloadCycle(ctx context.Context) (*pipeline.DownloadCycleResult, error) {
	var result pipeline.DownloadCycleResult
	if err := c.post(ctx, "/v1/cycles/download", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunUploadCycle triggers an upload cycle, including its commit, and waits
// for its result.
func (c *Client) RunUploadCycle(ctx context.Context) (*pipeline.UploadCycleResult, error) {
	var result pipeline.UploadCycleResult
	if err := c.post(ctx, "/v1/cycles/upload", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
