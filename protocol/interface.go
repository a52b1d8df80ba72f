package protocol

import "github.com/datazip-inc/tap-ilevel/state"

// StateStorageProvider is implemented by drivers whose config carries the
// credentials of a remote state path
type StateStorageProvider interface {
	StateStorage() *state.S3Config
}
