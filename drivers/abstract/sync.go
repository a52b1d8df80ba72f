package abstract

import (
	"context"
	"fmt"
	"time"

	"github.com/datazip-inc/tap-ilevel/destination"
	"github.com/datazip-inc/tap-ilevel/state"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/datazip-inc/tap-ilevel/utils/typeutils"
	"github.com/hashicorp/go-multierror"
)

// syncRun carries what streams of one run share: parent key values collected
// while a parent syncs, and the outcomes recorded so far
type syncRun struct {
	pool     *destination.WriterPool
	store    *state.Store
	streams  map[string]*types.StreamDefinition
	outcomes map[string]*StreamOutcome
	// parent name -> parent key field -> ids in first-seen order
	parentKeys map[string]map[string]*types.Set[string]
}

func newSyncRun(pool *destination.WriterPool, store *state.Store, streams []*types.StreamDefinition) *syncRun {
	run := &syncRun{
		pool:       pool,
		store:      store,
		streams:    make(map[string]*types.StreamDefinition),
		outcomes:   make(map[string]*StreamOutcome),
		parentKeys: make(map[string]map[string]*types.Set[string]),
	}
	for _, stream := range streams {
		run.streams[stream.Name] = stream
		if !stream.IsChild() {
			continue
		}
		if run.parentKeys[stream.Parent] == nil {
			run.parentKeys[stream.Parent] = make(map[string]*types.Set[string])
		}
		run.parentKeys[stream.Parent][stream.ParentKey] = types.NewSet[string]()
	}
	return run
}

// collect keeps the values of the parent key fields the selected children need
func (r *syncRun) collect(stream *types.StreamDefinition, records []types.Record) {
	for field, ids := range r.parentKeys[stream.Name] {
		for _, record := range records {
			if record[field] == nil {
				continue
			}
			id, err := record.GetStringifiedJSONValue(field)
			if err != nil {
				logger.Warnf("stream[%s]: skipping unreadable %s: %s", stream.Name, field, err)
				continue
			}
			ids.Insert(id)
		}
	}
}

// requests lists the fetches of stream: one for a top-level stream, one per
// collected parent id for a child
func (r *syncRun) requests(stream *types.StreamDefinition, start any) ([]types.FetchRequest, error) {
	if !stream.IsChild() {
		return []types.FetchRequest{{Stream: stream, Start: start}}, nil
	}

	parent, found := r.streams[stream.Parent]
	if !found {
		return nil, fmt.Errorf("parent stream[%s] is not part of the run", stream.Parent)
	}
	ids := r.parentKeys[stream.Parent][stream.ParentKey].Array()
	requests := make([]types.FetchRequest, 0, len(ids))
	for _, id := range ids {
		requests = append(requests, types.FetchRequest{Stream: stream, Parent: parent, ParentID: id, Start: start})
	}
	return requests, nil
}

// Read syncs streams one after the other. streams must be ordered parents first,
// as returned by the registry. A failing stream fails its children but never its
// siblings; every failure is recorded in the summary and returned aggregated.
// The store is flushed on every exit path.
func (a *AbstractDriver) Read(ctx context.Context, pool *destination.WriterPool, store *state.Store, streams []*types.StreamDefinition) (*Summary, error) {
	summary := &Summary{RunID: utils.ULID()}
	run := newSyncRun(pool, store, streams)
	started := time.Now()

	logger.Infof("run[%s]: syncing %d streams", summary.RunID, len(streams))
	err := store.WithFlush(ctx, func(ctx context.Context) error {
		var result error
		for _, stream := range streams {
			outcome := newOutcome(stream.Name)
			run.outcomes[stream.Name] = outcome
			summary.Outcomes = append(summary.Outcomes, outcome)

			if err := a.syncStream(ctx, run, stream, outcome); err != nil {
				result = multierror.Append(result, outcome.fail(err))
			}
		}
		return result
	})

	summary.Duration = time.Since(started)
	summary.Log()
	return summary, err
}

func (a *AbstractDriver) syncStream(ctx context.Context, run *syncRun, stream *types.StreamDefinition, outcome *StreamOutcome) (err error) {
	if stream.IsChild() {
		parent, found := run.outcomes[stream.Parent]
		if !found {
			return fmt.Errorf("parent stream[%s] is not part of the run", stream.Parent)
		}
		if parent.Status != Done {
			return fmt.Errorf("parent stream[%s] did not complete: %w", stream.Parent, parent.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := outcome.transition(Fetching); err != nil {
		return err
	}

	threadID := generateThreadID(stream.Name)
	thread, err := run.pool.NewThread(ctx, stream, destination.WithIdentifier(threadID))
	if err != nil {
		return fmt.Errorf("failed to create writer thread: %s", err)
	}
	defer handleWriterCleanup(ctx, &err, thread, threadID)()

	start := a.startBookmark(run.store, stream)
	if stored, found := run.store.Get(stream.Name); found && stream.BookmarkKey() != "" {
		outcome.Bookmark, _ = typeutils.FormatBookmark(stream.BookmarkType, stored)
	}
	requests, err := run.requests(stream, start)
	if err != nil {
		return err
	}
	logger.Infof("Thread[%s]: syncing stream %s from bookmark[%v] with %d request(s)", threadID, stream, start, len(requests))

	emitter := destination.NewEmitter(stream, thread)
	var running any
	for _, request := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}

		pages, err := a.driver.Pages(ctx, request)
		if err != nil {
			return fmt.Errorf("failed to start fetching: %w", err)
		}

		for pages.Next(ctx) {
			page := pages.Page()
			emitted, count, err := emitter.Emit(ctx, page.Records)
			if err != nil {
				return err
			}
			outcome.Pages++
			outcome.Records += int64(count)
			run.collect(stream, page.Records)
			running = typeutils.Max(running, typeutils.Max(page.MaxBookmark, emitted))

			// children checkpoint once every parent id is fetched
			if !stream.IsChild() {
				if err := a.checkpoint(ctx, run, stream, outcome, running); err != nil {
					return err
				}
			}
		}
		if err := pages.Err(); err != nil {
			return err
		}
	}

	if stream.IsChild() {
		if err := a.checkpoint(ctx, run, stream, outcome, running); err != nil {
			return err
		}
	}

	return outcome.transition(Done)
}

// startBookmark is the stored bookmark, or the driver's first-run default; nil
// for streams without an advancing bookmark
func (a *AbstractDriver) startBookmark(store *state.Store, stream *types.StreamDefinition) any {
	if stream.BookmarkKey() == "" {
		return nil
	}
	if stored, found := store.Get(stream.Name); found {
		return stored
	}
	return a.driver.StartBookmark(stream)
}

// checkpoint stores and flushes running when it moves the bookmark forward, then
// forwards the state to the destination. Records of the page are written before.
func (a *AbstractDriver) checkpoint(ctx context.Context, run *syncRun, stream *types.StreamDefinition, outcome *StreamOutcome, running any) error {
	if stream.BookmarkKey() == "" || running == nil {
		return nil
	}
	if stored, found := run.store.Get(stream.Name); found && typeutils.Compare(running, stored) <= 0 {
		return nil
	}

	if err := outcome.transition(Checkpointing); err != nil {
		return err
	}
	if err := run.store.Set(stream.Name, running, false); err != nil {
		return err
	}
	if err := run.store.Flush(ctx); err != nil {
		return err
	}
	snapshot, err := run.store.Snapshot()
	if err != nil {
		return err
	}
	if err := run.pool.WriteState(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to write state: %s", err)
	}

	formatted, err := typeutils.FormatBookmark(stream.BookmarkType, running)
	if err != nil {
		return err
	}
	outcome.Bookmark = formatted
	return outcome.transition(Fetching)
}
