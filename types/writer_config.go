package types

import "github.com/datazip-inc/tap-ilevel/constants"

// WriterConfig is the destination config file: the adapter type and its own settings
type WriterConfig struct {
	Type         constants.AdapterType `json:"type"`
	WriterConfig any                   `json:"writer"`
	BatchSize    int                   `json:"batch_size,omitempty"`
}
