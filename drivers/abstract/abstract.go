package abstract

import (
	"context"
	"fmt"

	"github.com/datazip-inc/tap-ilevel/destination"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/hashicorp/go-multierror"
)

type AbstractDriver struct { //nolint:gosec,revive
	driver DriverInterface
}

func NewAbstractDriver(_ context.Context, driver DriverInterface) *AbstractDriver {
	return &AbstractDriver{
		driver: driver,
	}
}

func (a *AbstractDriver) GetConfigRef() Config {
	return a.driver.GetConfigRef()
}

func (a *AbstractDriver) Spec() (*jsonschema.Schema, error) {
	return a.driver.Spec()
}

func (a *AbstractDriver) Type() string {
	return a.driver.Type()
}

func (a *AbstractDriver) Setup(ctx context.Context) error {
	return a.driver.Setup(ctx)
}

// Check sets the driver up and probes every given top-level stream with one request
func (a *AbstractDriver) Check(ctx context.Context, streams ...*types.StreamDefinition) error {
	if err := a.driver.Setup(ctx); err != nil {
		return fmt.Errorf("failed to setup %s: %s", a.driver.Type(), err)
	}

	var result error
	for _, stream := range streams {
		if stream.IsChild() {
			continue
		}
		if err := a.driver.Check(ctx, stream); err != nil {
			result = multierror.Append(result, fmt.Errorf("check failed for stream[%s]: %w", stream.Name, err))
			continue
		}
		logger.Debugf("stream[%s] reachable", stream.Name)
	}
	return result
}

func generateThreadID(stream string) string {
	return fmt.Sprintf("%s_%s", stream, utils.ULID())
}

// handleWriterCleanup returns the deferred cleanup of a stream sync: it closes the
// writer thread even on a canceled ctx, recovers a panic and prefixes the error
// with the thread id. err must point to the named return of the caller.
func handleWriterCleanup(ctx context.Context, err *error, thread *destination.WriterThread, threadID string) func() {
	return func() {
		if threadErr := thread.Close(context.WithoutCancel(ctx)); threadErr != nil {
			closeErr := fmt.Errorf("failed to close writer: %s", threadErr)
			*err = utils.Ternary(*err == nil, closeErr, fmt.Errorf("%s: prev error: %w", closeErr, *err)).(error)
		}

		if r := recover(); r != nil {
			*err = utils.Ternary(*err == nil, fmt.Errorf("panic recovered: %v", r), fmt.Errorf("panic recovered: %v: prev error: %w", r, *err)).(error)
		}

		if *err != nil {
			*err = fmt.Errorf("thread[%s]: %w", threadID, *err)
		}
	}
}
