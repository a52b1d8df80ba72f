package types

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Record is a single API object, transient per fetch
type Record map[string]any

func (r Record) GetStringifiedJSONValue(key string) (string, error) {
	value := r[key]
	switch value.(type) {
	case struct{}, map[string]any, []any:
		s, err := json.Marshal(value)
		return string(s), err
	default:
		return fmt.Sprintf("%v", r[key]), nil
	}
}

// RawRecord is a record tagged with its owning stream, ready for a writer
type RawRecord struct {
	Stream            string            `json:"stream"`
	TapID             string            `json:"_tap_id"`
	ReplicationMethod ReplicationMethod `json:"replication_method"`
	SyncedAt          time.Time         `json:"synced_at"`
	Data              Record            `json:"record"`
}

func CreateRawRecord(stream *StreamDefinition, tapID string, data Record, syncedAt time.Time) RawRecord {
	return RawRecord{
		Stream:            stream.Name,
		TapID:             tapID,
		ReplicationMethod: stream.ReplicationMethod,
		SyncedAt:          syncedAt,
		Data:              data,
	}
}
