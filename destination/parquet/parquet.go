package parquet

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/destination"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
	pqgo "github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

const fileExt = ".parquet"

var codecs = map[string]compress.Codec{
	"":             &pqgo.Snappy,
	"snappy":       &pqgo.Snappy,
	"gzip":         &pqgo.Gzip,
	"zstd":         &pqgo.Zstd,
	"lz4":          &pqgo.Lz4Raw,
	"none":         &pqgo.Uncompressed,
	"uncompressed": &pqgo.Uncompressed,
}

// Row is the file layout: record metadata plus the record itself as JSON
type Row struct {
	Stream            string    `parquet:"stream"`
	TapID             string    `parquet:"_tap_id"`
	ReplicationMethod string    `parquet:"_tap_replication_method"`
	SyncedAt          time.Time `parquet:"_tap_synced_at"`
	Data              string    `parquet:"data"`
}

type fileMetadata struct {
	fileName    string
	recordCount int64
	writer      *pqgo.GenericWriter[Row]
	file        *os.File
}

type Parquet struct {
	options  *destination.Options
	config   *Config
	stream   *types.StreamDefinition
	files    []*fileMetadata
	uploader *s3manager.Uploader
}

func (p *Parquet) GetConfigRef() destination.Config {
	return p.config
}

func (p *Parquet) Spec() (*jsonschema.Schema, error) {
	return jsonschema.For[Config](nil)
}

func (p *Parquet) Type() string {
	return string(constants.Parquet)
}

// Check validates the config and that the local path is writable
func (p *Parquet) Check(_ context.Context) error {
	if err := p.config.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(p.config.Path, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create local path: %s", err)
	}

	probe, err := os.CreateTemp(p.config.Path, ".tap_write_test-*")
	if err != nil {
		return fmt.Errorf("local path not writable: %s", err)
	}
	_ = probe.Close()
	return os.Remove(probe.Name())
}

// setup s3 uploader if a bucket is configured
func (p *Parquet) initS3Uploader() error {
	if p.config.Bucket == "" {
		return nil
	}

	s3Config := aws.Config{}
	if p.config.Region != "" {
		s3Config.Region = aws.String(p.config.Region)
	}
	if p.config.AccessKey != "" && p.config.SecretKey != "" {
		s3Config.Credentials = credentials.NewStaticCredentials(p.config.AccessKey, p.config.SecretKey, "")
	}
	if p.config.S3Endpoint != "" {
		s3Config.Endpoint = aws.String(p.config.S3Endpoint)
		s3Config.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(&s3Config)
	if err != nil {
		return fmt.Errorf("failed to create AWS session: %s", err)
	}
	p.uploader = s3manager.NewUploader(sess)

	return nil
}

func (p *Parquet) Setup(stream *types.StreamDefinition, options *destination.Options) error {
	p.options = options
	p.stream = stream

	if err := p.initS3Uploader(); err != nil {
		return fmt.Errorf("failed to setup S3 uploader: %s", err)
	}

	return p.createNewFile()
}

func (p *Parquet) createNewFile() error {
	directoryPath := filepath.Join(p.config.Path, p.stream.Name)
	if err := os.MkdirAll(directoryPath, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directories[%s]: %s", directoryPath, err)
	}

	fileName := utils.ULID() + fileExt
	file, err := os.Create(filepath.Join(directoryPath, fileName))
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %s", err)
	}

	writerOptions := []pqgo.WriterOption{pqgo.Compression(codecs[p.config.Compression])}
	if p.config.RowGroupSize > 0 {
		writerOptions = append(writerOptions, pqgo.MaxRowsPerRowGroup(p.config.RowGroupSize))
	}

	p.files = append(p.files, &fileMetadata{
		fileName: fileName,
		writer:   pqgo.NewGenericWriter[Row](file, writerOptions...),
		file:     file,
	})
	return nil
}

func (p *Parquet) Write(_ context.Context, records []types.RawRecord) error {
	for _, record := range records {
		current := p.files[len(p.files)-1]
		if p.config.MaxRows > 0 && current.recordCount >= p.config.MaxRows {
			if err := p.createNewFile(); err != nil {
				return err
			}
			current = p.files[len(p.files)-1]
		}

		data, err := json.Marshal(record.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %s", err)
		}

		if _, err := current.writer.Write([]Row{{
			Stream:            record.Stream,
			TapID:             record.TapID,
			ReplicationMethod: string(record.ReplicationMethod),
			SyncedAt:          record.SyncedAt,
			Data:              string(data),
		}}); err != nil {
			return fmt.Errorf("failed to write record: %s", err)
		}
		current.recordCount++
	}

	return nil
}

// WriteState is a no-op, the state lives with the cursor store
func (p *Parquet) WriteState(_ context.Context, _ *types.State) error {
	return nil
}

// Close finalizes every file, drops empty ones and uploads the rest when a bucket is set
func (p *Parquet) Close(ctx context.Context) error {
	for _, meta := range p.files {
		if err := meta.writer.Close(); err != nil {
			return fmt.Errorf("failed to close writer: %s", err)
		}
		if err := meta.file.Close(); err != nil {
			return fmt.Errorf("failed to close parquet file: %s", err)
		}

		localPath := meta.file.Name()
		if meta.recordCount == 0 {
			logger.Debugf("removing %s, no records written", localPath)
			if err := os.Remove(localPath); err != nil {
				return fmt.Errorf("failed to remove empty file: %s", err)
			}
			continue
		}

		if p.uploader != nil {
			if err := p.upload(ctx, localPath, meta.fileName); err != nil {
				return err
			}
		}
		logger.Infof("stream[%s] wrote %d records to %s", p.stream.Name, meta.recordCount, localPath)
	}

	p.files = nil
	return nil
}

func (p *Parquet) upload(ctx context.Context, localPath, fileName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	key := path.Join(p.config.Prefix, p.stream.Name, fileName)
	_, err = p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(p.config.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s/%s: %s", localPath, p.config.Bucket, key, err)
	}
	return nil
}

func init() {
	destination.RegisteredWriters[constants.Parquet] = func() destination.Writer {
		return &Parquet{config: &Config{}}
	}
}
