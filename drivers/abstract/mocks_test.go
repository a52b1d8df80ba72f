package abstract

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/destination"
	"github.com/datazip-inc/tap-ilevel/state"
	"github.com/datazip-inc/tap-ilevel/streams"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"
)

type mockConfig struct {
	Invalid bool
}

func (c *mockConfig) Validate() error {
	if c.Invalid {
		return fmt.Errorf("invalid mock config")
	}
	return nil
}

// step is either a page or the error ending the iteration
type step struct {
	page *types.Page
	err  error
}

type MockDriver struct {
	mu        sync.Mutex
	config    *mockConfig
	start     any
	scripts   map[string][]step
	requests  []types.FetchRequest
	checkFunc func(ctx context.Context, stream *types.StreamDefinition) error
	pagesFunc func(ctx context.Context, request types.FetchRequest) (PageIterator, error)
	onPage    func(request types.FetchRequest, page *types.Page)
}

func newMockDriver() *MockDriver {
	return &MockDriver{
		config:  &mockConfig{},
		scripts: map[string][]step{},
	}
}

func scriptKey(request types.FetchRequest) string {
	if request.ParentID != "" {
		return request.Stream.Name + "/" + request.ParentID
	}
	return request.Stream.Name
}

func (m *MockDriver) GetConfigRef() Config {
	return m.config
}

func (m *MockDriver) Spec() (*jsonschema.Schema, error) {
	return jsonschema.For[mockConfig](nil)
}

func (m *MockDriver) Type() string {
	return "mock"
}

func (m *MockDriver) Setup(_ context.Context) error {
	return m.config.Validate()
}

func (m *MockDriver) Check(ctx context.Context, stream *types.StreamDefinition) error {
	if m.checkFunc != nil {
		return m.checkFunc(ctx, stream)
	}
	return nil
}

func (m *MockDriver) StartBookmark(_ *types.StreamDefinition) any {
	return m.start
}

func (m *MockDriver) Pages(ctx context.Context, request types.FetchRequest) (PageIterator, error) {
	m.mu.Lock()
	m.requests = append(m.requests, request)
	m.mu.Unlock()

	if m.pagesFunc != nil {
		return m.pagesFunc(ctx, request)
	}
	return &mockPager{request: request, steps: m.scripts[scriptKey(request)], onPage: m.onPage}, nil
}

// requestsFor lists the requests issued for stream in order
func (m *MockDriver) requestsFor(stream string) []types.FetchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []types.FetchRequest
	for _, request := range m.requests {
		if request.Stream.Name == stream {
			found = append(found, request)
		}
	}
	return found
}

type mockPager struct {
	request types.FetchRequest
	steps   []step
	idx     int
	page    *types.Page
	err     error
	onPage  func(request types.FetchRequest, page *types.Page)
}

func (p *mockPager) Next(ctx context.Context) bool {
	if p.err != nil || p.idx >= len(p.steps) {
		return false
	}
	if err := ctx.Err(); err != nil {
		p.err = err
		return false
	}

	current := p.steps[p.idx]
	p.idx++
	if current.err != nil {
		p.err = current.err
		return false
	}
	p.page = current.page
	if p.onPage != nil {
		p.onPage(p.request, p.page)
	}
	return true
}

func (p *mockPager) Page() *types.Page {
	return p.page
}

func (p *mockPager) Err() error {
	return p.err
}

func page(number int, maxBookmark any, records ...types.Record) step {
	return step{page: &types.Page{Number: number, Records: records, MaxBookmark: maxBookmark}}
}

func fail(err error) step {
	return step{err: err}
}

func day(month, d int) time.Time {
	return time.Date(2023, time.Month(month), d, 0, 0, 0, 0, time.UTC)
}

// captureWriter keeps the written rows and states per bucket
type captureWriter struct {
	config *captureConfig
	stream *types.StreamDefinition
}

type captureConfig struct {
	Bucket string `json:"bucket"`
	FailOn string `json:"fail_on,omitempty"`
}

func (c *captureConfig) Validate() error {
	return nil
}

const captureType constants.AdapterType = "CAPTURE"

var captured = struct {
	sync.Mutex
	records map[string][]types.RawRecord
	states  map[string][]*types.State
}{
	records: map[string][]types.RawRecord{},
	states:  map[string][]*types.State{},
}

func capturedRecords(bucket, stream string) []types.RawRecord {
	captured.Lock()
	defer captured.Unlock()
	var found []types.RawRecord
	for _, record := range captured.records[bucket] {
		if record.Stream == stream {
			found = append(found, record)
		}
	}
	return found
}

func capturedStates(bucket string) []*types.State {
	captured.Lock()
	defer captured.Unlock()
	return append([]*types.State(nil), captured.states[bucket]...)
}

func (w *captureWriter) GetConfigRef() destination.Config {
	return w.config
}

func (w *captureWriter) Spec() (*jsonschema.Schema, error) {
	return jsonschema.For[captureConfig](nil)
}

func (w *captureWriter) Type() string {
	return string(captureType)
}

func (w *captureWriter) Check(_ context.Context) error {
	return nil
}

func (w *captureWriter) Setup(stream *types.StreamDefinition, _ *destination.Options) error {
	w.stream = stream
	return nil
}

func (w *captureWriter) Write(_ context.Context, records []types.RawRecord) error {
	if w.stream != nil && w.stream.Name == w.config.FailOn {
		return fmt.Errorf("destination refused %s", w.stream.Name)
	}
	captured.Lock()
	defer captured.Unlock()
	captured.records[w.config.Bucket] = append(captured.records[w.config.Bucket], records...)
	return nil
}

func (w *captureWriter) WriteState(_ context.Context, state *types.State) error {
	captured.Lock()
	defer captured.Unlock()
	captured.states[w.config.Bucket] = append(captured.states[w.config.Bucket], state)
	return nil
}

func (w *captureWriter) Close(_ context.Context) error {
	return nil
}

func init() {
	destination.RegisteredWriters[captureType] = func() destination.Writer {
		return &captureWriter{config: &captureConfig{}}
	}
}

type memoryPersister struct {
	mu    sync.Mutex
	state *types.State
	saves int
}

func (m *memoryPersister) Load(_ context.Context) (*types.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, constants.ErrStateMissing
	}
	return m.state.Snapshot(), nil
}

func (m *memoryPersister) Save(_ context.Context, state *types.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.state = state.Snapshot()
	return nil
}

func (m *memoryPersister) String() string {
	return "memory"
}

func (m *memoryPersister) bookmark(stream string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	value, _ := m.state.GetBookmark(stream)
	return value
}

func testRegistry(t *testing.T) *streams.Registry {
	t.Helper()
	registry, err := streams.New(
		&types.StreamDefinition{Name: "assets", KeyProperties: []string{"id"}, ReplicationMethod: types.Incremental, ReplicationKeys: []string{"last_modified_date"}},
		&types.StreamDefinition{
			Name:              "funds",
			KeyProperties:     []string{"id"},
			ReplicationMethod: types.Incremental,
			ReplicationKeys:   []string{"last_modified_date"},
			Children: []*types.StreamDefinition{
				{Name: "fund_notes", Path: "/notes", KeyProperties: []string{"id"}, ReplicationMethod: types.Incremental, ReplicationKeys: []string{"last_modified_date"}},
			},
		},
		&types.StreamDefinition{Name: "scenarios", KeyProperties: []string{"id"}, ReplicationMethod: types.FullTable},
		&types.StreamDefinition{Name: "events", ReplicationMethod: types.Incremental},
	)
	require.NoError(t, err)
	return registry
}

type harness struct {
	driver    *AbstractDriver
	mock      *MockDriver
	registry  *streams.Registry
	persister *memoryPersister
	store     *state.Store
	pool      *destination.WriterPool
	bucket    string
}

func newHarness(t *testing.T, failOn string) *harness {
	t.Helper()
	ctx := context.Background()

	h := &harness{
		mock:      newMockDriver(),
		registry:  testRegistry(t),
		persister: &memoryPersister{},
		bucket:    t.Name(),
	}
	h.driver = NewAbstractDriver(ctx, h.mock)
	h.store = state.NewStore(h.persister, h.registry)
	require.NoError(t, h.store.Load(ctx))

	pool, err := destination.NewWriterPool(ctx, &types.WriterConfig{
		Type:         captureType,
		WriterConfig: map[string]any{"bucket": h.bucket, "fail_on": failOn},
	})
	require.NoError(t, err)
	h.pool = pool
	return h
}

func (h *harness) read(ctx context.Context, t *testing.T, names ...string) (*Summary, error) {
	t.Helper()
	selected, err := h.registry.Ordered(names...)
	require.NoError(t, err)
	summary, err := h.driver.Read(ctx, h.pool, h.store, selected)
	require.NoError(t, h.pool.Close(ctx))
	return summary, err
}
