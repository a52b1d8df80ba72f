package driver

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils/typeutils"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Pager walks the pages of one stream. It stops after an empty or short page,
// on the first error, or when the context is done before the next request.
type Pager struct {
	client   *Client
	stream   *types.StreamDefinition
	path     string
	query    url.Values
	pageSize int

	number  int
	running any
	page    *types.Page
	err     error
	done    bool
}

// NewPager builds the request of request.Stream, resuming from request.Start
func (c *Client) NewPager(request types.FetchRequest, pageSize int) (*Pager, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	path, err := StreamPath(request)
	if err != nil {
		return nil, err
	}

	stream := request.Stream
	query := url.Values{}
	for key, value := range stream.Params {
		query.Set(key, value)
	}
	if field := stream.QueryField(); field != "" && request.Start != nil {
		bookmark, err := typeutils.BookmarkString(stream.BookmarkType, request.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid start bookmark for stream[%s]: %s", stream.Name, err)
		}
		query.Set(field, bookmark)
	}
	query.Set(constants.DefaultPageSizeParam, strconv.Itoa(pageSize))

	return &Pager{
		client:   c,
		stream:   stream,
		path:     path,
		query:    query,
		pageSize: pageSize,
	}, nil
}

// StreamPath is the endpoint of a stream; a child path is nested under its parent's record
func StreamPath(request types.FetchRequest) (string, error) {
	stream := request.Stream
	if !stream.IsChild() {
		return stream.Path, nil
	}

	if request.Parent == nil || request.ParentID == "" {
		return "", fmt.Errorf("child stream[%s] requires a %s id", stream.Name, stream.Parent)
	}
	return fmt.Sprintf("%s/%s%s", request.Parent.Path, url.PathEscape(request.ParentID), stream.Path), nil
}

func (p *Pager) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		p.err = err
		return false
	}

	p.number++
	query := url.Values{}
	for key, values := range p.query {
		query[key] = values
	}
	query.Set(constants.DefaultPageParam, strconv.Itoa(p.number))

	body, err := p.client.get(ctx, p.stream.Name, p.number, p.path, query)
	if err != nil {
		p.err = err
		return false
	}

	records, err := extractRecords(body, p.stream.DataKey)
	if err != nil {
		p.err = &types.FatalFetchError{Stream: p.stream.Name, Page: p.number, Err: err}
		return false
	}
	if len(records) == 0 {
		p.done = true
		p.page = nil
		return false
	}

	if err := p.track(records); err != nil {
		p.err = &types.FatalFetchError{Stream: p.stream.Name, Page: p.number, Err: err}
		return false
	}

	p.done = len(records) < p.pageSize
	p.page = &types.Page{
		Number:      p.number,
		Records:     records,
		MaxBookmark: p.running,
	}
	return true
}

func (p *Pager) Page() *types.Page {
	return p.page
}

func (p *Pager) Err() error {
	return p.err
}

// track advances the running maximum bookmark, records are not assumed sorted
func (p *Pager) track(records []types.Record) error {
	key := p.stream.BookmarkKey()
	if key == "" {
		return nil
	}

	for _, record := range records {
		value, found := record[key]
		if !found || value == nil {
			continue
		}
		bookmark, err := typeutils.ReformatBookmark(p.stream.BookmarkType, value)
		if err != nil {
			return fmt.Errorf("malformed bookmark field[%s]: %s", key, err)
		}
		p.running = typeutils.Max(p.running, bookmark)
	}

	return nil
}

// extractRecords reads the record array under dataKey; numbers stay json.Number
func extractRecords(body []byte, dataKey string) ([]types.Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed response: invalid JSON")
	}

	result := gjson.GetBytes(body, dataKey)
	switch {
	case !result.Exists():
		return nil, fmt.Errorf("malformed response: data key[%s] not found", dataKey)
	case result.Type == gjson.Null:
		return nil, nil
	case !result.IsArray():
		return nil, fmt.Errorf("malformed response: data key[%s] is not an array", dataKey)
	}

	decoder := json.NewDecoder(strings.NewReader(result.Raw))
	decoder.UseNumber()

	var records []types.Record
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("malformed response: %s", err)
	}
	return records, nil
}
