// Package openai is the direct HTTP driver for the OpenAI API. It is the
// only driver that supports image edits.
package openai

import (
	"context"
	"fmt"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver/compat"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	compat.Transport
}

// NewClient returns a client for baseURL, or the public API when empty.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{Transport: compat.NewTransport("openai", baseURL, defaultBaseURL, apiKey)}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsImages:     true,
		SupportsImageEdits: true,
		SupportsJSONSchema: true,
	}
}

func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	return c.Chat(ctx, req, true)
}

var (
	_ driver.Driver      = (*Client)(nil)
	_ driver.ImageDriver = (*Client)(nil)
)
