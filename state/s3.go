package state

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/goccy/go-json"
)

// S3Persister keeps the state as a single object in a bucket
type S3Persister struct {
	client s3iface.S3API
	bucket string
	key    string
}

func NewS3Persister(bucket, key string, cfg S3Config) (*S3Persister, error) {
	awsCfg := aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
	} else {
		logger.Debug("S3 credentials not provided for state, using default AWS credential chain")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(cfg.PathStyle)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session for state: %s", err)
	}

	return newS3PersisterWithClient(s3.New(sess), bucket, key), nil
}

func newS3PersisterWithClient(client s3iface.S3API, bucket, key string) *S3Persister {
	return &S3Persister{client: client, bucket: bucket, key: key}
}

func (p *S3Persister) Load(ctx context.Context) (*types.State, error) {
	output, err := p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, constants.ErrStateMissing
		}
		return nil, err
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read state object: %s", err)
	}

	state := types.NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("malformed state object: %s", err)
	}
	return state, nil
}

func (p *S3Persister) Save(ctx context.Context, state *types.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	_, err = p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

func (p *S3Persister) String() string {
	return fmt.Sprintf("s3://%s/%s", p.bucket, p.key)
}
