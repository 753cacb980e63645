package imageupload

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/peepybureau/bpi/internal/conf"
)

// putObjectAPI is the slice of the S3 client used here.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores images in an S3 compatible bucket.
type S3 struct {
	client  putObjectAPI
	bucket  string
	prefix  string
	baseURL string
	now     func() time.Time
	newID   func() string
}

// NewS3 builds a client from the default AWS chain, overridden by static
// keys when both are set. A missing bucket yields ErrNotConfigured.
func NewS3(ctx context.Context, cfg conf.S3Settings) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, uploadError(fmt.Errorf("failed to load AWS config: %w", err), conf.ImageProviderS3)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3WithClient(client, cfg, region), nil
}

func newS3WithClient(client putObjectAPI, cfg conf.S3Settings, region string) *S3 {
	return &S3{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: publicBaseURL(cfg, region),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// publicBaseURL prefers the configured public URL, then the custom endpoint,
// then the virtual-hosted AWS bucket URL.
func publicBaseURL(cfg conf.S3Settings, region string) string {
	switch {
	case cfg.PublicURL != "":
		return strings.TrimRight(cfg.PublicURL, "/")
	case cfg.Endpoint != "":
		base := strings.TrimRight(cfg.Endpoint, "/")
		if cfg.UsePathStyle {
			return base + "/" + cfg.Bucket
		}
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			u.Host = cfg.Bucket + "." + u.Host
			return u.String()
		}
		return base + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
}

func (u *S3) Name() string { return conf.ImageProviderS3 }

// Upload writes the image under prefix/yyyy/mm/<uuid>.<ext>.
func (u *S3) Upload(ctx context.Context, img Image) (string, error) {
	key := objectName(u.now().UTC(), u.newID(), &img)
	if u.prefix != "" {
		key = path.Join(u.prefix, key)
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(img.ContentType),
		ContentLength: aws.Int64(int64(len(img.Data))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", uploadError(fmt.Errorf("failed to put object %s: %w", key, err), u.Name())
	}
	return u.baseURL + "/" + key, nil
}
