// Package xai drives x.ai over its OpenAI-compatible endpoints.
package xai

import (
	"context"
	"fmt"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver/compat"
)

const defaultBaseURL = "https://api.x.ai/v1"

type Client struct {
	compat.Transport
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{Transport: compat.NewTransport("xai", baseURL, defaultBaseURL, apiKey)}
}

func (c *Client) Name() string { return "xai" }

// Capabilities reports image generation only; xAI has neither edits nor
// json_schema response formats.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{SupportsImages: true}
}

func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("xai client not configured")
	}
	return c.Chat(ctx, req, false)
}

var (
	_ driver.Driver      = (*Client)(nil)
	_ driver.ImageDriver = (*Client)(nil)
)
