package state

import (
	"fmt"
	"strings"

	"github.com/datazip-inc/tap-ilevel/types"
)

const s3Scheme = "s3://"

// S3Config carries optional credentials for s3:// state paths
type S3Config struct {
	Region       string `json:"region,omitempty"`
	AccessKey    string `json:"access_key,omitempty"`
	SecretKey    string `json:"secret_key,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	PathStyle    bool   `json:"path_style,omitempty"`
}

// NewPersister picks the backend from the state path: s3://bucket/key or a local file
func NewPersister(path string, s3Config *S3Config) (types.StatePersister, error) {
	if path == "" {
		return nil, fmt.Errorf("state path is required")
	}

	if strings.HasPrefix(path, s3Scheme) {
		bucket, key, err := parseS3Path(path)
		if err != nil {
			return nil, err
		}
		if s3Config == nil {
			s3Config = &S3Config{}
		}
		return NewS3Persister(bucket, key, *s3Config)
	}

	return NewFilePersister(path), nil
}

func parseS3Path(path string) (string, string, error) {
	trimmed := strings.TrimPrefix(path, s3Scheme)
	bucket, key, found := strings.Cut(trimmed, "/")
	key = strings.Trim(key, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 state path[%s], expected s3://bucket/key", path)
	}
	return bucket, key, nil
}
