package destination

import (
	"context"
	"fmt"
	"sync"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/google/jsonschema-go/jsonschema"
)

const memoryType constants.AdapterType = "MEMORY"

// MemoryWriter keeps everything written in process for assertions
type MemoryWriter struct {
	config *MemoryConfig
	stream *types.StreamDefinition
}

type MemoryConfig struct {
	Bucket  string `json:"bucket"`
	FailOn  string `json:"fail_on,omitempty"`
	Invalid bool   `json:"invalid,omitempty"`
}

func (c *MemoryConfig) Validate() error {
	if c.Invalid {
		return fmt.Errorf("invalid memory config")
	}
	return nil
}

var memory = struct {
	sync.Mutex
	records map[string][]types.RawRecord
	states  map[string][]*types.State
	closed  map[string]int
}{
	records: map[string][]types.RawRecord{},
	states:  map[string][]*types.State{},
	closed:  map[string]int{},
}

func memoryRecords(bucket string) []types.RawRecord {
	memory.Lock()
	defer memory.Unlock()
	return append([]types.RawRecord(nil), memory.records[bucket]...)
}

func (w *MemoryWriter) GetConfigRef() Config {
	return w.config
}

func (w *MemoryWriter) Spec() (*jsonschema.Schema, error) {
	return jsonschema.For[MemoryConfig](nil)
}

func (w *MemoryWriter) Type() string {
	return string(memoryType)
}

func (w *MemoryWriter) Check(_ context.Context) error {
	return w.config.Validate()
}

func (w *MemoryWriter) Setup(stream *types.StreamDefinition, _ *Options) error {
	w.stream = stream
	return nil
}

func (w *MemoryWriter) Write(_ context.Context, records []types.RawRecord) error {
	if w.stream != nil && w.stream.Name == w.config.FailOn {
		return fmt.Errorf("write to %s refused", w.stream.Name)
	}
	memory.Lock()
	defer memory.Unlock()
	memory.records[w.config.Bucket] = append(memory.records[w.config.Bucket], records...)
	return nil
}

func (w *MemoryWriter) WriteState(_ context.Context, state *types.State) error {
	memory.Lock()
	defer memory.Unlock()
	memory.states[w.config.Bucket] = append(memory.states[w.config.Bucket], state)
	return nil
}

func (w *MemoryWriter) Close(_ context.Context) error {
	memory.Lock()
	defer memory.Unlock()
	memory.closed[w.config.Bucket]++
	return nil
}

func init() {
	RegisteredWriters[memoryType] = func() Writer {
		return &MemoryWriter{config: &MemoryConfig{}}
	}
}
