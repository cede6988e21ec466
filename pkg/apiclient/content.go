package apiclient

import (
	"context"

	"github.com/marmos91/photobridge/pkg/api/handlers"
)

// Enqueue submits a content reference for download.
func (c *Client) Enqueue(ctx context.Context, req handlers.ContentRequest) (*handlers.ContentAccepted, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	var accepted handlers.ContentAccepted
	if err := c.post(ctx, "/v1/content", req, &accepted); err != nil {
		return nil, err
	}
	return &accepted, nil
}
