package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"db-auto-backup/internal/logger"

	"go.uber.org/zap"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectMeta describes one mirrored backup object.
type ObjectMeta struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// Options configure the bucket connection. A non-empty Endpoint switches
// the client to an S3-compatible service with path-style addressing.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Uploader mirrors finished backup files into an S3 bucket.
type Uploader struct {
	uploader *manager.Uploader
	client   *s3.Client
	bucket   string
}

// NewUploader builds an uploader from the given options. Credentials fall
// back to the default AWS chain (env vars, shared profile, IAM role) when
// no static pair is provided.
func NewUploader(ctx context.Context, opts Options) (*Uploader, error) {
	if opts.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		logger.Log.Info("Using static S3 credentials from environment")
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	} else {
		logger.Log.Info("No static S3 credentials provided, using default AWS credential chain")
	}

	if opts.Endpoint != "" {
		logger.Log.Info("Custom S3 endpoint configured",
			zap.String("endpoint", opts.Endpoint),
		)
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{URL: opts.Endpoint, SigningRegion: region}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOptions = append(loadOptions, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	logger.Log.Info("S3 mirror initialized",
		zap.String("bucket", opts.Bucket),
		zap.String("region", cfg.Region),
		zap.String("endpoint", opts.Endpoint),
	)
	return &Uploader{
		uploader: manager.NewUploader(client),
		client:   client,
		bucket:   opts.Bucket,
	}, nil
}

// Upload streams the backup file at path into the bucket under its base
// name.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup for upload: %w", err)
	}
	defer f.Close()

	key := filepath.Base(path)
	cr := &countingReader{reader: f}
	result, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   cr,
	})
	if err != nil {
		return fmt.Errorf("failed to upload backup to S3 (bucket: %s, key: %s): %w", u.bucket, key, err)
	}

	logger.Log.Info("Uploaded backup to S3",
		zap.String("location", result.Location),
		zap.String("key", key),
		zap.Int64("bytes", cr.count),
	)
	return nil
}

// ListObjects returns the bucket objects matching prefix.
func (u *Uploader) ListObjects(ctx context.Context, prefix string) ([]ObjectMeta, error) {
	var objects []ObjectMeta
	paginator := s3.NewListObjectsV2Paginator(u.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(u.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects for bucket %s: %w", u.bucket, err)
		}
		for _, obj := range page.Contents {
			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}
			objects = append(objects, ObjectMeta{
				Key:          aws.ToString(obj.Key),
				LastModified: aws.ToTime(obj.LastModified),
				Size:         size,
			})
		}
	}
	return objects, nil
}

// DeleteObject removes one object from the bucket.
func (u *Uploader) DeleteObject(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete S3 object (bucket: %s, key: %s): %w", u.bucket, key, err)
	}
	return nil
}

// countingReader wraps an io.Reader and counts the bytes read.
type countingReader struct {
	reader io.Reader
	count  int64
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.reader.Read(p)
	cr.count += int64(n)
	return
}
