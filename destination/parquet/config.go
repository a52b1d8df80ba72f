package parquet

import (
	"fmt"

	"github.com/datazip-inc/tap-ilevel/utils"
)

type Config struct {
	Path string `json:"local_path" validate:"required"` // Local directory the files are written to

	// optional upload of closed files
	Bucket     string `json:"s3_bucket,omitempty"`
	Region     string `json:"s3_region,omitempty"`
	AccessKey  string `json:"s3_access_key,omitempty"`
	SecretKey  string `json:"s3_secret_key,omitempty"`
	Prefix     string `json:"s3_path,omitempty"`
	S3Endpoint string `json:"s3_endpoint,omitempty"`

	Compression  string `json:"compression,omitempty"`    // snappy (default), gzip, zstd, lz4, none
	MaxRows      int64  `json:"max_rows,omitempty"`       // rows per file before rolling over, unlimited when 0
	RowGroupSize int64  `json:"row_group_size,omitempty"` // rows per row group
}

func (c *Config) Validate() error {
	if c.Compression != "" {
		if _, found := codecs[c.Compression]; !found {
			return fmt.Errorf("invalid compression codec: %s. Valid options are: snappy, gzip, zstd, lz4, none, uncompressed", c.Compression)
		}
	}

	if c.MaxRows < 0 {
		return fmt.Errorf("max_rows must be a positive value")
	}

	if c.RowGroupSize < 0 {
		return fmt.Errorf("row_group_size must be a positive value")
	}

	return utils.Validate(c)
}
