package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/state"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/typeutils"
)

type Config struct {
	// BaseURL of the iLEVEL REST API, e.g. https://api.ilevelsolutions.com/v1
	BaseURL string `json:"base_url" validate:"required,url" jsonschema:"iLEVEL API base URL"`

	// token auth takes precedence over basic auth
	APIKey   string `json:"api_key,omitempty" validate:"required_without=Username" jsonschema:"API token sent as a bearer token"`
	Username string `json:"username,omitempty" validate:"required_with=Password" jsonschema:"username for basic authentication"`
	Password string `json:"password,omitempty" validate:"required_with=Username" jsonschema:"password for basic authentication"`

	StartDate string `json:"start_date,omitempty" validate:"omitempty,timestamp" jsonschema:"lower bound for datetime bookmarks on the first sync"`

	PageSize       int     `json:"page_size,omitempty" validate:"gte=0" jsonschema:"records requested per page"`
	MaxRetries     int     `json:"max_retries,omitempty" validate:"gte=0" jsonschema:"retries of a page on transient errors"`
	RetryBackoff   string  `json:"retry_backoff,omitempty" jsonschema:"initial retry backoff as a duration, e.g. 1s"`
	RequestTimeout string  `json:"request_timeout,omitempty" jsonschema:"timeout of a single request as a duration, e.g. 60s"`
	RateLimit      float64 `json:"rate_limit,omitempty" validate:"gte=0" jsonschema:"maximum requests per second"`

	// StateStorage holds credentials used when the state path is an s3:// url
	StateStorage *state.S3Config `json:"state_storage,omitempty" jsonschema:"credentials for s3 state paths"`

	retryBackoff   time.Duration
	requestTimeout time.Duration
	startDate      time.Time
}

// Validate checks the config and fills in defaults
func (c *Config) Validate() error {
	if err := utils.Validate(c); err != nil {
		return err
	}

	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.PageSize = utils.Ternary(c.PageSize == 0, constants.DefaultPageSize, c.PageSize).(int)
	c.MaxRetries = utils.Ternary(c.MaxRetries == 0, constants.DefaultRetryCount, c.MaxRetries).(int)
	c.RateLimit = utils.Ternary(c.RateLimit == 0, float64(constants.DefaultRateLimit), c.RateLimit).(float64)

	var err error
	if c.retryBackoff, err = parseDuration(c.RetryBackoff, constants.DefaultRetryBackoff); err != nil {
		return fmt.Errorf("invalid retry_backoff: %s", err)
	}
	if c.requestTimeout, err = parseDuration(c.RequestTimeout, constants.DefaultRequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %s", err)
	}

	startDate := utils.Ternary(c.StartDate == "", constants.DefaultStartDate, c.StartDate).(string)
	if c.startDate, err = typeutils.ParseTimestamp(startDate); err != nil {
		return fmt.Errorf("invalid start_date: %s", err)
	}

	return nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", value)
	}
	return d, nil
}
