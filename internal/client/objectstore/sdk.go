package objectstore

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// s3API is the subset of *s3.Client used by SDKGateway.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SDKGateway uploads through aws-sdk-go-v2 with path-style addressing.
type SDKGateway struct {
	bucket string
	client s3API
	log    logging.Logger
}

var _ Gateway = (*SDKGateway)(nil)

func NewSDKGateway(ctx context.Context, cfg Config, log logging.Logger) (*SDKGateway, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	if log == nil {
		log = logging.Nop()
	}
	return &SDKGateway{bucket: cfg.Bucket, client: client, log: log.With("component", "object-gateway")}, nil
}

func (g *SDKGateway) Put(ctx context.Context, obj Object) (*Result, error) {
	f, err := os.Open(obj.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", obj.Path, err)
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(obj.Key),
		Body:        f,
		ContentType: aws.String(obj.ContentType),
		ContentMD5:  aws.String(obj.MD5),
	}
	if obj.Public {
		in.ACL = types.ObjectCannedACLPublicRead
	}

	out, err := g.client.PutObject(ctx, in)
	if err != nil {
		g.log.Warn(ctx, "put object failed", "key", obj.Key, "error", err)
		return nil, fmt.Errorf("put object %s: %w", obj.Key, err)
	}

	etag := aws.ToString(out.ETag)
	if err := verifyETag(etag, obj.MD5); err != nil {
		return nil, err
	}
	return &Result{ETag: strings.Trim(etag, `"`)}, nil
}

func (g *SDKGateway) Get(ctx context.Context, key, dst string) error {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		g.log.Warn(ctx, "get object failed", "key", key, "error", err)
		return fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	return writeAtomic(dst, out.Body)
}
