package singer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/destination"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
)

type Config struct {
	// Output is a file the messages are appended to; stdout when empty
	Output string `json:"output,omitempty" jsonschema:"file the messages are appended to, stdout when empty"`
}

func (c *Config) Validate() error {
	return utils.Validate(c)
}

// Singer writes SCHEMA, RECORD and STATE messages as JSON lines
type Singer struct {
	config *Config
	stream *types.StreamDefinition
	out    *output
	// API fields shadowed by tap columns, warned once per column
	shadowed map[string]bool
}

func (s *Singer) GetConfigRef() destination.Config {
	return s.config
}

func (s *Singer) Spec() (*jsonschema.Schema, error) {
	return jsonschema.For[Config](nil)
}

func (s *Singer) Type() string {
	return string(constants.Singer)
}

func (s *Singer) Check(_ context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	out, err := acquire(s.config.Output)
	if err != nil {
		return err
	}
	s.out = out
	return nil
}

func (s *Singer) Setup(stream *types.StreamDefinition, _ *destination.Options) error {
	out, err := acquire(s.config.Output)
	if err != nil {
		return err
	}
	s.out = out
	s.stream = stream

	return s.out.write(types.Message{
		Type:   types.SchemaMessage,
		Stream: stream.Name,
		Schema: map[string]any{
			"type":                 []string{"null", "object"},
			"additionalProperties": true,
		},
		KeyProperties:      stream.KeyProperties,
		BookmarkProperties: stream.ReplicationKeys,
	})
}

func (s *Singer) Write(_ context.Context, records []types.RawRecord) error {
	for _, record := range records {
		data := make(map[string]any, len(record.Data)+3)
		for k, v := range record.Data {
			data[k] = v
		}
		s.set(record.Stream, data, constants.TapID, record.TapID)
		s.set(record.Stream, data, constants.ReplicationCol, record.ReplicationMethod)
		s.set(record.Stream, data, constants.TapTimestamp, record.SyncedAt)

		if err := s.out.write(types.Message{
			Type:          types.RecordMessage,
			Stream:        record.Stream,
			Record:        data,
			TimeExtracted: &record.SyncedAt,
		}); err != nil {
			return err
		}
	}
	return nil
}

// set writes a tap column, warning the first time it replaces a field of the API record
func (s *Singer) set(stream string, data map[string]any, column string, value any) {
	if _, found := data[column]; found && !s.shadowed[column] {
		if s.shadowed == nil {
			s.shadowed = map[string]bool{}
		}
		s.shadowed[column] = true
		logger.Warnf("stream[%s]: record field %s is overwritten by the tap column of the same name", stream, column)
	}
	data[column] = value
}

func (s *Singer) WriteState(_ context.Context, state *types.State) error {
	if s.out == nil {
		return fmt.Errorf("singer writer not checked")
	}
	return s.out.write(types.Message{
		Type:  types.StateMessage,
		Value: state,
	})
}

func (s *Singer) Close(_ context.Context) error {
	if s.out == nil {
		return nil
	}
	out := s.out
	s.out = nil
	return out.release()
}

// output is shared by every writer targeting the same destination so lines never interleave
type output struct {
	mu     sync.Mutex
	key    string
	w      io.Writer
	closer io.Closer
	refs   int
}

var (
	outputsMu sync.Mutex
	outputs   = map[string]*output{}
)

func acquire(path string) (*output, error) {
	outputsMu.Lock()
	defer outputsMu.Unlock()

	if out, found := outputs[path]; found {
		out.refs++
		return out, nil
	}

	out := &output{key: path, w: os.Stdout, refs: 1}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open singer output: %s", err)
		}
		out.w, out.closer = file, file
	}
	outputs[path] = out
	return out, nil
}

func (o *output) release() error {
	outputsMu.Lock()
	defer outputsMu.Unlock()

	o.refs--
	if o.refs > 0 {
		return nil
	}
	delete(outputs, o.key)
	if o.closer != nil {
		return o.closer.Close()
	}
	return nil
}

func (o *output) write(message types.Message) error {
	line, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %s", message.Type, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	_, err = o.w.Write(append(line, '\n'))
	return err
}

func init() {
	destination.RegisteredWriters[constants.Singer] = func() destination.Writer {
		return &Singer{config: &Config{}}
	}
}
