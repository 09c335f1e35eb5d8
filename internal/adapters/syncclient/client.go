// Package syncclient submits queued records to the server's batch endpoint.
package syncclient

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/zerr"
)

// Client implements ports.BatchSyncer using resty.
type Client struct {
	url  string
	http *resty.Client
}

// New creates a Client posting to origin + endpoint.
func New(origin, endpoint string, timeout time.Duration) *Client {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{url: strings.TrimRight(origin, "/") + endpoint, http: c}
}

// Submit posts the batch and decodes the accepted IDs.
func (c *Client) Submit(ctx context.Context, batch *domain.BatchRequest) (*domain.BatchResult, error) {
	var result domain.BatchResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(batch).
		SetResult(&result).
		Post(c.url)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrUpstreamUnavailable, err.Error()), "url", c.url)
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, zerr.With(zerr.Wrap(domain.ErrBatchRejected, resp.Status()), "status", resp.StatusCode())
	}
	return &result, nil
}
