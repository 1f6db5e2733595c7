// pkg/connector/s3.go
package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/config"
	"github.com/David-Botos/dni-validator/pkg/converter"
	"github.com/David-Botos/dni-validator/pkg/model"
)

// S3API is the subset of the S3 client used here
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client loads the AWS configuration for cfg. Static keys take
// precedence over the shared profile; a custom endpoint switches to
// path-style addressing.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	switch {
	case cfg.AccessKeyID != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	case cfg.Profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ParseS3URL splits s3://bucket/key
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q: expected s3://bucket/key", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q: missing object key", raw)
	}
	return u.Host, key, nil
}

// S3Source loads a spreadsheet or CSV object from S3
type S3Source struct {
	client    S3API
	bucket    string
	key       string
	label     string
	logger    *zap.Logger
	converter *converter.TypeConverter
}

// NewS3Source creates an S3Source for s3://bucket/key
func NewS3Source(client S3API, rawURL, label string, logger *zap.Logger, conv *converter.TypeConverter) (*S3Source, error) {
	if client == nil {
		return nil, errors.New("S3 client cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv = converter.NewTypeConverter(logger)
	}
	return &S3Source{
		client:    client,
		bucket:    bucket,
		key:       key,
		label:     label,
		logger:    logger.Named("s3-source"),
		converter: conv,
	}, nil
}

// Name returns the object URL
func (s *S3Source) Name() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Load downloads and parses the object
func (s *S3Source) Load(ctx context.Context) (*model.Table, error) {
	format, err := DetectFormat(s.key)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, s.Name())
		}
		return nil, fmt.Errorf("getting %s: %w", s.Name(), err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Name(), err)
	}

	table, err := ParseTable(data, format, s.label, s.converter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Name(), err)
	}

	s.logger.Info("Loaded table from S3",
		zap.String("bucket", s.bucket),
		zap.String("key", s.key),
		zap.Int("rows", table.Len()))

	return table, nil
}

// ArtifactPublisher uploads run artifacts to S3
type ArtifactPublisher struct {
	client S3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewArtifactPublisher creates a publisher writing under bucket/prefix
func NewArtifactPublisher(client S3API, bucket, prefix string, logger *zap.Logger) (*ArtifactPublisher, error) {
	if client == nil {
		return nil, errors.New("S3 client cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &ArtifactPublisher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.Named("artifact-publisher"),
	}, nil
}

// Publish uploads every file to <prefix>/<runID>/<file name> and returns the
// resulting s3:// URLs in input order
func (p *ArtifactPublisher) Publish(ctx context.Context, runID string, paths []string) ([]string, error) {
	urls := make([]string, 0, len(paths))
	for _, local := range paths {
		key := path.Join(p.prefix, runID, filepath.Base(local))
		if err := p.put(ctx, key, local); err != nil {
			return urls, err
		}
		urls = append(urls, "s3://"+p.bucket+"/"+key)
	}

	p.logger.Info("Published artifacts",
		zap.String("bucket", p.bucket),
		zap.String("run_id", runID),
		zap.Int("count", len(urls)))

	return urls, nil
}

func (p *ArtifactPublisher) put(ctx context.Context, key, local string) error {
	file, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("opening %s: %w", local, err)
	}
	defer file.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType(local)),
	})
	if err != nil {
		return fmt.Errorf("uploading %s to S3: %w", local, err)
	}
	return nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
