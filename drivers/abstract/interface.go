package abstract

import (
	"context"

	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/google/jsonschema-go/jsonschema"
)

type Config interface {
	Validate() error
}

// PageIterator is a lazy finite sequence of pages of one stream
type PageIterator interface {
	types.Iterable
	Page() *types.Page
}

type DriverInterface interface {
	GetConfigRef() Config
	Spec() (*jsonschema.Schema, error)
	Type() string
	// specific to test & setup
	Setup(ctx context.Context) error
	Check(ctx context.Context, stream *types.StreamDefinition) error
	// specific to sync
	StartBookmark(stream *types.StreamDefinition) any
	Pages(ctx context.Context, request types.FetchRequest) (PageIterator, error)
}
