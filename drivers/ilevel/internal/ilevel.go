package driver

import (
	"context"
	"fmt"
	"net/url"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/drivers/abstract"
	"github.com/datazip-inc/tap-ilevel/state"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/google/jsonschema-go/jsonschema"
)

// ILevel is the source driver for the iLEVEL REST API
type ILevel struct {
	config  *Config
	client  *Client
	options []ClientOption
}

func New(opts ...ClientOption) *ILevel {
	return &ILevel{
		config:  &Config{},
		options: opts,
	}
}

func (i *ILevel) GetConfigRef() abstract.Config {
	return i.config
}

func (i *ILevel) Spec() (*jsonschema.Schema, error) {
	return jsonschema.For[Config](nil)
}

func (i *ILevel) Type() string {
	return string(constants.ILevel)
}

func (i *ILevel) Setup(_ context.Context) error {
	if err := i.config.Validate(); err != nil {
		return fmt.Errorf("failed to validate config: %s", err)
	}

	i.client = NewClient(i.config, i.options...)
	logger.Infof("ilevel client ready for %s (page size %d, %.1f req/s)", i.config.BaseURL, i.config.PageSize, i.config.RateLimit)
	return nil
}

// Check performs one authenticated request for a single record of stream
func (i *ILevel) Check(ctx context.Context, stream *types.StreamDefinition) error {
	if i.client == nil {
		return fmt.Errorf("driver not set up")
	}

	query := url.Values{}
	query.Set(constants.DefaultPageParam, "1")
	query.Set(constants.DefaultPageSizeParam, "1")
	body, err := i.client.get(ctx, stream.Name, 1, stream.Path, query)
	if err != nil {
		return err
	}

	if _, err := extractRecords(body, stream.DataKey); err != nil {
		return &types.FatalFetchError{Stream: stream.Name, Page: 1, Err: err}
	}
	return nil
}

// StartBookmark is the implicit lower bound of a first run: the configured start
// date for datetime streams, no filter otherwise
func (i *ILevel) StartBookmark(stream *types.StreamDefinition) any {
	if stream.QueryField() == "" || stream.BookmarkType != types.DatetimeBookmark {
		return nil
	}
	return i.config.startDate
}

func (i *ILevel) Pages(_ context.Context, request types.FetchRequest) (abstract.PageIterator, error) {
	if i.client == nil {
		return nil, fmt.Errorf("driver not set up")
	}
	return i.client.NewPager(request, i.config.PageSize)
}

// StateStorage returns the credentials for s3:// state paths, nil when unset
func (i *ILevel) StateStorage() *state.S3Config {
	return i.config.StateStorage
}
