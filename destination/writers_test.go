package destination

import (
	"context"
	"testing"
	"time"

	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterPool(t *testing.T) {
	ctx := context.Background()

	_, err := NewWriterPool(ctx, &types.WriterConfig{Type: "KAFKA"})
	assert.ErrorContains(t, err, "invalid destination type")

	_, err = NewWriterPool(ctx, &types.WriterConfig{Type: memoryType, WriterConfig: map[string]any{"invalid": true}})
	assert.ErrorContains(t, err, "failed to test destination")
}

func TestWriterPoolLifecycle(t *testing.T) {
	ctx := context.Background()
	bucket := t.Name()
	pool, err := NewWriterPool(ctx, &types.WriterConfig{Type: memoryType, WriterConfig: map[string]any{"bucket": bucket}, BatchSize: 2})
	require.NoError(t, err)

	stream := assetsStream()
	first, err := pool.NewThread(ctx, stream)
	require.NoError(t, err)
	second, err := pool.NewThread(ctx, &types.StreamDefinition{Name: "funds"})
	require.NoError(t, err)
	assert.NotEqual(t, first.options.Number, second.options.Number)

	records := []types.RawRecord{}
	for i := 0; i < 5; i++ {
		records = append(records, types.CreateRawRecord(stream, "", types.Record{"id": i}, time.Now()))
	}
	require.NoError(t, first.Push(ctx, records))
	assert.Equal(t, int64(5), pool.SyncedRecords())

	require.NoError(t, first.Close(ctx))
	assert.Error(t, first.Push(ctx, records))

	state := types.NewState()
	require.NoError(t, pool.WriteState(ctx, state))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	require.NoError(t, pool.Close(canceled))

	memory.Lock()
	defer memory.Unlock()
	// two threads plus the control writer, each closed once
	assert.Equal(t, 3, memory.closed[bucket])
	assert.Len(t, memory.states[bucket], 1)
}

func TestPushSurfacesWriterErrors(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWriterPool(ctx, &types.WriterConfig{Type: memoryType, WriterConfig: map[string]any{"bucket": t.Name(), "fail_on": "assets"}})
	require.NoError(t, err)

	thread, err := pool.NewThread(ctx, assetsStream())
	require.NoError(t, err)
	assert.ErrorContains(t, thread.Push(ctx, []types.RawRecord{{Stream: "assets"}}), "refused")
}
