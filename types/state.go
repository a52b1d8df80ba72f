package types

import (
	"bytes"
	"sort"
	"sync"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/goccy/go-json"
)

// State is the persisted bookmark mapping, one value per stream
type State struct {
	*sync.RWMutex `json:"-"`

	Version   int            `json:"version"`
	Bookmarks map[string]any `json:"bookmarks"`
}

func NewState() *State {
	return &State{
		RWMutex:   &sync.RWMutex{},
		Version:   constants.LatestStateVersion,
		Bookmarks: map[string]any{},
	}
}

func (s *State) init() {
	if s.RWMutex == nil {
		s.RWMutex = &sync.RWMutex{}
	}
	if s.Bookmarks == nil {
		s.Bookmarks = map[string]any{}
	}
}

func (s *State) GetBookmark(stream string) (any, bool) {
	s.init()
	s.RLock()
	defer s.RUnlock()

	value, found := s.Bookmarks[stream]
	return value, found && value != nil
}

func (s *State) SetBookmark(stream string, value any) {
	s.init()
	s.Lock()
	defer s.Unlock()

	s.Bookmarks[stream] = value
}

func (s *State) DeleteBookmark(stream string) {
	s.init()
	s.Lock()
	defer s.Unlock()

	delete(s.Bookmarks, stream)
}

// Streams returns the names holding a bookmark, sorted
func (s *State) Streams() []string {
	s.init()
	s.RLock()
	defer s.RUnlock()

	names := make([]string, 0, len(s.Bookmarks))
	for name := range s.Bookmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *State) IsZero() bool {
	s.init()
	s.RLock()
	defer s.RUnlock()

	return len(s.Bookmarks) == 0
}

// Snapshot returns a detached copy safe to serialize while the original keeps changing
func (s *State) Snapshot() *State {
	s.init()
	s.RLock()
	defer s.RUnlock()

	bookmarks := make(map[string]any, len(s.Bookmarks))
	for k, v := range s.Bookmarks {
		bookmarks[k] = v
	}
	return &State{
		RWMutex:   &sync.RWMutex{},
		Version:   s.Version,
		Bookmarks: bookmarks,
	}
}

// UnmarshalJSON accepts the current {"version", "bookmarks"} layout and the
// legacy flat {"stream": value} layout; numbers are kept as json.Number
func (s *State) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	raw := map[string]any{}
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	s.RWMutex = &sync.RWMutex{}
	s.Bookmarks = map[string]any{}
	s.Version = 0

	bookmarks, nested := raw["bookmarks"].(map[string]any)
	if !nested {
		// legacy version 0
		for k, v := range raw {
			s.Bookmarks[k] = v
		}
		return nil
	}

	for k, v := range bookmarks {
		s.Bookmarks[k] = v
	}
	if version, ok := raw["version"].(json.Number); ok {
		v, err := version.Int64()
		if err != nil {
			return err
		}
		s.Version = int(v)
	}

	return nil
}
