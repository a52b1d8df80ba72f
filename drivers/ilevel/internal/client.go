package driver

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/datazip-inc/tap-ilevel/constants"
	"golang.org/x/time/rate"
)

// Client provides access to the iLEVEL REST API
type Client struct {
	baseURL    string
	apiKey     string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter

	maxRetries   int
	retryBackoff time.Duration
	maxBackoff   time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// NewClient expects a validated config
func NewClient(config *Config, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  config.BaseURL,
		apiKey:   config.APIKey,
		username: config.Username,
		password: config.Password,
		httpClient: &http.Client{
			Timeout: config.requestTimeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		maxRetries:   config.MaxRetries,
		retryBackoff: config.retryBackoff,
		maxBackoff:   max(config.retryBackoff, constants.DefaultMaxBackoff),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit replaces the request budget; a non-positive rate disables limiting
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func (c *Client) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryBackoff
	exp.MaxInterval = c.maxBackoff
	exp.RandomizationFactor = 0.5
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithMaxRetries(exp, uint64(c.maxRetries))
}
