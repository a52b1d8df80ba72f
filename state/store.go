package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/datazip-inc/tap-ilevel/utils/safego"
	"github.com/datazip-inc/tap-ilevel/utils/typeutils"
	"github.com/hashicorp/go-multierror"
)

// StreamLookup resolves the definition owning a bookmark
type StreamLookup interface {
	Get(name string) (*types.StreamDefinition, error)
}

// Store holds one bookmark per stream. Values are kept typed in memory
// (time.Time or int64) and rendered in their persisted form on Flush.
//
// The orchestrator is the only writer; flushMu only serializes flushes.
type Store struct {
	persister types.StatePersister
	streams   StreamLookup
	state     *types.State
	flushMu   sync.Mutex
}

func NewStore(persister types.StatePersister, streams StreamLookup) *Store {
	return &Store{
		persister: persister,
		streams:   streams,
		state:     types.NewState(),
	}
}

// Load reads the persisted state; a missing state is a first run. Bookmarks of
// known streams are normalized by bookmark type, unknown ones are carried as-is.
func (s *Store) Load(ctx context.Context) error {
	loaded, err := s.persister.Load(ctx)
	if errors.Is(err, constants.ErrStateMissing) {
		logger.Infof("no state found at %s, starting fresh", s.persister)
		s.state = types.NewState()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load state from %s: %s", s.persister, err)
	}

	if loaded.Version > constants.LatestStateVersion {
		return fmt.Errorf("state version[%d] is newer than supported version[%d]", loaded.Version, constants.LatestStateVersion)
	}
	constants.LoadedStateVersion = loaded.Version

	state := types.NewState()
	for _, name := range loaded.Streams() {
		raw, _ := loaded.GetBookmark(name)
		stream, err := s.streams.Get(name)
		if err != nil {
			logger.Warnf("state holds a bookmark for unknown stream[%s], keeping it untouched", name)
			state.SetBookmark(name, raw)
			continue
		}

		typed, err := typeutils.ReformatBookmark(stream.BookmarkType, raw)
		if err != nil {
			return fmt.Errorf("invalid bookmark for stream[%s]: %s", name, err)
		}
		if typed != nil {
			state.SetBookmark(name, typed)
		}
	}

	s.state = state
	logger.Infof("loaded state version[%d] with %d bookmarks", loaded.Version, len(state.Streams()))
	return nil
}

// Get returns the typed bookmark of stream; false means the stream never checkpointed
func (s *Store) Get(stream string) (any, bool) {
	return s.state.GetBookmark(stream)
}

// Set records a new bookmark. A value strictly lower than the stored one fails
// with CursorRegressionError unless force is set.
func (s *Store) Set(stream string, value any, force bool) error {
	def, err := s.streams.Get(stream)
	if err != nil {
		return err
	}

	typed, err := typeutils.ReformatBookmark(def.BookmarkType, value)
	if err != nil {
		return fmt.Errorf("invalid bookmark for stream[%s]: %s", stream, err)
	}
	if typed == nil {
		return fmt.Errorf("empty bookmark for stream[%s]", stream)
	}

	if stored, found := s.state.GetBookmark(stream); found && !force {
		if typeutils.Compare(typed, stored) < 0 {
			return &types.CursorRegressionError{Stream: stream, Stored: stored, Attempted: typed}
		}
	}

	s.state.SetBookmark(stream, typed)
	return nil
}

// Reset forgets the bookmark of stream, the next sync of it starts from scratch
func (s *Store) Reset(stream string) {
	s.state.DeleteBookmark(stream)
}

// Snapshot returns the state in its persisted form
func (s *Store) Snapshot() (*types.State, error) {
	snapshot := s.state.Snapshot()
	snapshot.Version = constants.LatestStateVersion

	for _, name := range snapshot.Streams() {
		value, _ := snapshot.GetBookmark(name)
		def, err := s.streams.Get(name)
		if err != nil {
			continue
		}
		formatted, err := typeutils.FormatBookmark(def.BookmarkType, value)
		if err != nil {
			return nil, fmt.Errorf("failed to format bookmark for stream[%s]: %s", name, err)
		}
		snapshot.SetBookmark(name, formatted)
	}

	return snapshot, nil
}

// Flush persists the current bookmarks
func (s *Store) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	snapshot, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := s.persister.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save state to %s: %s", s.persister, err)
	}

	logger.Debugf("state flushed to %s", s.persister)
	return nil
}

// WithFlush runs fn and flushes the store on every exit path, including a panic
// in fn or a canceled ctx. A flush failure is joined with fn's error.
func (s *Store) WithFlush(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if flushErr := s.Flush(context.WithoutCancel(ctx)); flushErr != nil {
			err = multierror.Append(err, flushErr)
		}
	}()
	defer safego.RecoverError(&err)

	return fn(ctx)
}
