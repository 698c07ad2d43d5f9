package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// S3API is the part of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates a snapshot object. Endpoint is set for S3-compatible
// services such as R2 or MinIO; static keys are used when both are given,
// the default AWS credential chain otherwise.
type S3Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Store keeps one snapshot object in a bucket. The codec follows the
// object key extension.
type S3Store struct {
	client S3API
	bucket string
	key    string
	codec  Codec
}

// NewS3Store builds an AWS client from cfg.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Key)
}

// NewS3StoreWithClient uses an existing client.
func NewS3StoreWithClient(client S3API, bucket, key string) (*S3Store, error) {
	codec, err := CodecFor(key)
	if err != nil {
		return nil, err
	}
	return &S3Store{client: client, bucket: bucket, key: key, codec: codec}, nil
}

func (s *S3Store) Backend() string { return "s3" }

// Save uploads the encoded store and returns its size in bytes.
func (s *S3Store) Save(ctx context.Context, store *knowledge.Store) (int, error) {
	data, err := s.codec.Encode(store.Export())
	if err != nil {
		return 0, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(s.codec)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return len(data), nil
}

// Load downloads and decodes the snapshot object.
func (s *S3Store) Load(ctx context.Context) (*knowledge.Store, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return nil, fmt.Errorf("%w: s3://%s/%s: %w", ErrNoSnapshot, s.bucket, s.key, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	doc, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return restore(doc)
}

func contentType(c Codec) string {
	switch c.Name() {
	case "json":
		return "application/json"
	case "yaml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}
