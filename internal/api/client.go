package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/rs/zerolog"

	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/logging"
	"github.com/diogo/insightchat/internal/models"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 8 << 20

// Doer is the slice of the HTTP client the backend client needs
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AskRequest is one question plus the conversation that preceded it
type AskRequest struct {
	Query   string
	History []models.Message
}

// Asker is implemented by Client and MockClient
type Asker interface {
	Ask(ctx context.Context, req AskRequest) (*models.Reply, error)
	Protocol() models.Protocol
	Close()
}

// Client talks to the analytics backend over one configured protocol
type Client struct {
	httpClient Doer
	endpoint   string
	model      string
	timeout    time.Duration
	codec      Codec
	logger     zerolog.Logger
	mu         sync.RWMutex
	closed     bool
}

var _ Asker = (*Client)(nil)

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithEndpoint sets the backend URL
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithProtocol selects the wire protocol. Unknown protocols fall back to query.
func WithProtocol(p models.Protocol) ClientOption {
	return func(c *Client) {
		if codec, err := CodecFor(p); err == nil {
			c.codec = codec
		}
	}
}

// WithModel sets the model name sent by the conversation protocol
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the transport, mainly for tests
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// NewClient creates a new Client
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		endpoint: models.DefaultEndpoint,
		model:    models.DefaultModel,
		timeout:  300 * time.Second,
		codec:    QueryCodec{},
		logger:   logging.For("api"),
	}

	for _, opt := range opts {
		opt(client)
	}

	if strings.TrimSpace(client.endpoint) == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if client.httpClient == nil {
		// Timeouts are enforced per request through the context
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(0),
			tls_client.WithClientProfile(profiles.Chrome_120),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// Endpoint returns the backend URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Protocol returns the configured wire protocol
func (c *Client) Protocol() models.Protocol {
	return c.codec.Protocol()
}

// Close marks the client closed. Pending requests are not interrupted.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Ask sends one question and decodes the backend's answer. Failures are
// typed so callers can render them with errors.ChatText.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*models.Reply, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, apierrors.ErrEmptyQuery
	}
	if c.IsClosed() {
		return nil, fmt.Errorf("client is closed")
	}

	payload, err := c.codec.Encode(req, c.model)
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apierrors.NewTimeoutError(fmt.Sprintf("no answer from %s within %s", c.endpoint, c.timeout))
		}
		return nil, apierrors.NewNetworkErrorWithEndpoint("ask", c.endpoint, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apierrors.NewNetworkErrorWithEndpoint("read response", c.endpoint, err)
	}

	c.logger.Debug().
		Str("protocol", string(c.codec.Protocol())).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("backend answered")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierrors.NewAPIErrorWithBody(resp.StatusCode, c.endpoint, failureMessage(body), string(body))
	}

	return c.codec.Decode(body)
}
