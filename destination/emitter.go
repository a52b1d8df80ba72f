package destination

import (
	"context"
	"fmt"
	"time"

	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/typeutils"
)

// Emitter turns the raw records of one stream into tagged rows for its writer thread
type Emitter struct {
	stream *types.StreamDefinition
	thread *WriterThread
	now    func() time.Time
}

func NewEmitter(stream *types.StreamDefinition, thread *WriterThread) *Emitter {
	return &Emitter{
		stream: stream,
		thread: thread,
		now:    time.Now,
	}
}

// Emit writes a page and returns the highest bookmark among the emitted records,
// nil when none of them carries one
func (e *Emitter) Emit(ctx context.Context, records []types.Record) (any, int, error) {
	records = Dedup(e.stream, records)
	syncedAt := e.now().UTC()

	var maxBookmark any
	bookmarkKey := e.stream.BookmarkKey()
	rows := make([]types.RawRecord, 0, len(records))
	for _, record := range records {
		if bookmarkKey != "" && record[bookmarkKey] != nil {
			bookmark, err := typeutils.ReformatBookmark(e.stream.BookmarkType, record[bookmarkKey])
			if err != nil {
				return nil, 0, fmt.Errorf("invalid bookmark in stream[%s]: %s", e.stream.Name, err)
			}
			maxBookmark = typeutils.Max(maxBookmark, bookmark)
		}

		rows = append(rows, types.CreateRawRecord(e.stream, utils.GetKeysHash(record, e.stream.KeyProperties...), record, syncedAt))
	}

	if err := e.thread.Push(ctx, rows); err != nil {
		return nil, 0, err
	}

	return maxBookmark, len(rows), nil
}

// Dedup collapses records sharing key_properties: the last occurrence wins and
// takes the position of the first. Streams without key properties pass through.
func Dedup(stream *types.StreamDefinition, records []types.Record) []types.Record {
	if len(stream.KeyProperties) == 0 {
		return records
	}

	positions := make(map[string]int, len(records))
	deduped := make([]types.Record, 0, len(records))
	for _, record := range records {
		key := utils.GetKeysHash(record, stream.KeyProperties...)
		if idx, found := positions[key]; found {
			deduped[idx] = record
			continue
		}
		positions[key] = len(deduped)
		deduped = append(deduped, record)
	}

	return deduped
}
