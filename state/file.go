package state

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/goccy/go-json"
)

// FilePersister keeps the state in a local JSON file, replaced atomically on save
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (f *FilePersister) Load(_ context.Context) (*types.State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, constants.ErrStateMissing
	}
	if err != nil {
		return nil, err
	}

	state := types.NewState()
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("malformed state file: %s", err)
	}

	return state, nil
}

func (f *FilePersister) Save(_ context.Context, state *types.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return utils.WriteFileAtomic(f.path, data, 0o644)
}

func (f *FilePersister) String() string {
	return f.path
}
