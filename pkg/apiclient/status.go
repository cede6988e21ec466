package apiclient

import (
	"context"

	"github.com/marmos91/photobridge/pkg/api/handlers"
)

// Health is the liveness payload.
type Health struct {
	Service string `json:"service"`
}

// Status returns queue depths, buffered tokens and counters.
func (c *Client) Status(ctx context.Context) (*handlers.StatusResponse, error) {
	var status handlers.StatusResponse
	if err := c.get(ctx, "/v1/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Health calls the liveness probe.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}
