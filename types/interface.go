package types

import "context"

// Iterable is implemented by lazy sequences such as the page fetcher
type Iterable interface {
	Next(ctx context.Context) bool
	Err() error
}

// StatePersister stores the bookmark state outside the process
type StatePersister interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
	String() string
}
