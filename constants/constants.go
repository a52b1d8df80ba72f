package constants

import (
	"errors"
	"time"
)

const (
	TapID          = "_tap_id"
	TapTimestamp   = "_tap_synced_at"
	ReplicationCol = "_tap_replication_method"

	// viper keys, also readable from the environment with the TAP_ILEVEL_ prefix
	ConfigFolder    = "CONFIG_FOLDER"
	ConfigPath      = "CONFIG_PATH"
	StatePath       = "STATE_PATH"
	DestinationPath = "DESTINATION_PATH"
	DestinationType = "DESTINATION_TYPE"
	Streams         = "STREAMS"
	Reset           = "RESET"
	BatchSize       = "BATCH_SIZE"
	EncryptionKey   = "ENCRYPTION_KEY"
	EnvPrefix       = "TAP_ILEVEL"
	LogLevel        = "LOG_LEVEL"
	LogFileOutput   = "LOG_FILE_OUTPUT"

	DefaultPageSize       = 1000
	DefaultRetryCount     = 5
	DefaultRetryBackoff   = time.Second
	DefaultMaxBackoff     = 30 * time.Second
	DefaultRequestTimeout = 60 * time.Second
	DefaultRateLimit      = 10 // requests per second
	DefaultStartDate      = "2000-01-01T00:00:00Z"
	DefaultPageParam      = "page"
	DefaultPageSizeParam  = "page_size"
)

type DriverType string

const ILevel DriverType = "ilevel"

type AdapterType string

const (
	Singer  AdapterType = "SINGER"
	Parquet AdapterType = "PARQUET"
)

var ErrStateMissing = errors.New("state not found")
