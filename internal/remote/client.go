package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/AgentOS/updater/internal/infrastructure/resilience"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrNetwork wraps transport failures, non-2xx responses and undecodable bodies
var ErrNetwork = errors.New("network error")

// DefaultUserAgent is sent with every request
const DefaultUserAgent = "AgentOS-Updater/1.0"

// Config configures the HTTP client
type Config struct {
	// Timeout bounds check-latest and stats calls. Downloads are unbounded.
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns the client defaults
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: DefaultUserAgent,
	}
}

// Client wraps resty for the update endpoints. API calls and downloads use
// separate resty clients over one pooled transport: API calls carry a
// timeout, downloads run as long as the transfer does.
type Client struct {
	api      *resty.Client
	download *resty.Client
	latest   *resilience.Breaker
}

// NewClient creates a client. No automatic retries are configured.
func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	// Pooled transport from go-cleanhttp; retryablehttp's retry loop is not used
	transport := retryablehttp.NewClient().HTTPClient.Transport

	api := resty.New().
		SetTransport(transport).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	download := resty.New().
		SetTransport(transport).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent)

	return &Client{
		api:      api,
		download: download,
		latest: resilience.New("check-latest", resilience.Settings{
			FailureThreshold: 5,
			Cooldown:         time.Minute,
		}),
	}
}

// PostJSON posts body to url and decodes a JSON response into out when out
// is non-nil
func (c *Client) PostJSON(ctx context.Context, url string, body, out interface{}) error {
	req := c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Post(url)
	if err != nil {
		return fmt.Errorf("%w: post %s: %v", ErrNetwork, url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: post %s: HTTP %d", ErrNetwork, url, resp.StatusCode())
	}
	return nil
}
