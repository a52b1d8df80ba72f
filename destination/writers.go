package destination

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
)

const defaultBatchSize = 10000

type (
	NewFunc func() Writer

	Options struct {
		Identifier string
		Number     int64
	}

	ThreadOptions func(opt *Options)

	// WriterPool hands out one writer thread per stream and keeps a control
	// writer for state messages
	WriterPool struct {
		batchSize     int
		recordCount   atomic.Int64
		ThreadCounter atomic.Int64
		config        any     // respective writer config
		init          NewFunc // To initialize exclusive destination threads
		control       Writer
		threads       map[string]*WriterThread
		tmu           sync.Mutex // Mutex between threads
	}
)

var RegisteredWriters = map[constants.AdapterType]NewFunc{}

func WithIdentifier(identifier string) ThreadOptions {
	return func(opt *Options) {
		opt.Identifier = identifier
	}
}

// NewWriterPool checks the destination and prepares the pool
func NewWriterPool(ctx context.Context, config *types.WriterConfig) (*WriterPool, error) {
	newfunc, found := RegisteredWriters[config.Type]
	if !found {
		return nil, fmt.Errorf("invalid destination type has been passed [%s]", config.Type)
	}

	control := newfunc()
	if err := utils.Unmarshal(config.WriterConfig, control.GetConfigRef()); err != nil {
		return nil, err
	}

	if err := control.Check(ctx); err != nil {
		return nil, fmt.Errorf("failed to test destination: %s", err)
	}

	return &WriterPool{
		batchSize: utils.Ternary(config.BatchSize > 0, config.BatchSize, defaultBatchSize).(int),
		config:    config.WriterConfig,
		init:      newfunc,
		control:   control,
		threads:   map[string]*WriterThread{},
	}, nil
}

// WriterThread is the writer dedicated to one stream
type WriterThread struct {
	*WriterPool
	stream  *types.StreamDefinition
	writer  Writer
	options *Options
	closed  bool
}

// NewThread initializes a writer for stream
func (w *WriterPool) NewThread(_ context.Context, stream *types.StreamDefinition, options ...ThreadOptions) (*WriterThread, error) {
	opts := &Options{
		Identifier: stream.Name,
		Number:     w.ThreadCounter.Add(1),
	}
	for _, one := range options {
		one(opts)
	}

	w.tmu.Lock() // lock for concurrent access of w.config
	defer w.tmu.Unlock()

	writer := w.init()
	if err := utils.Unmarshal(w.config, writer.GetConfigRef()); err != nil {
		return nil, err
	}
	if err := writer.Setup(stream, opts); err != nil {
		return nil, fmt.Errorf("failed to init thread[%d] for stream[%s]: %s", opts.Number, stream.Name, err)
	}

	thread := &WriterThread{
		WriterPool: w,
		stream:     stream,
		writer:     writer,
		options:    opts,
	}
	w.threads[fmt.Sprintf("%s#%d", stream.Name, opts.Number)] = thread
	return thread, nil
}

// Push writes records in batches; it returns once every batch is written
func (t *WriterThread) Push(ctx context.Context, records []types.RawRecord) error {
	if t.closed {
		return fmt.Errorf("writer thread[%d] for stream[%s] is closed", t.options.Number, t.stream.Name)
	}

	for start := 0; start < len(records); start += t.batchSize {
		end := min(start+t.batchSize, len(records))
		if err := t.writer.Write(ctx, records[start:end]); err != nil {
			return fmt.Errorf("failed to write records: %s", err)
		}
		t.recordCount.Add(int64(end - start))
	}

	return nil
}

func (t *WriterThread) Close(ctx context.Context) error {
	t.tmu.Lock()
	defer t.tmu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.writer.Close(ctx)
}

// WriteState forwards a checkpoint to the destination
func (w *WriterPool) WriteState(ctx context.Context, state *types.State) error {
	return w.control.WriteState(ctx, state)
}

// SyncedRecords returns total records written at runtime
func (w *WriterPool) SyncedRecords() int64 {
	return w.recordCount.Load()
}

// Close closes every open thread concurrently and then the control writer, even
// when ctx is already canceled
func (w *WriterPool) Close(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	w.tmu.Lock()
	closers := make([]func(ctx context.Context) error, 0, len(w.threads))
	for _, thread := range w.threads {
		if !thread.closed {
			closers = append(closers, thread.Close)
		}
	}
	w.tmu.Unlock()

	err := utils.ErrExecSequential(
		func() error { return utils.ErrExec(ctx, closers...) },
		utils.ErrExecFormat("failed to close destination: %s", func() error { return w.control.Close(ctx) }),
	)
	logger.Infof("destination closed, %d records written", w.SyncedRecords())
	return err
}
