package cachestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/zerr"
)

const defaultRegion = "us-east-1"

// S3Options holds explicit construction parameters for the S3 store.
// Credentials fall back to the default AWS chain when AccessKeyID is empty.
type S3Options struct {
	domain.S3Config
	AccessKeyID     string
	SecretAccessKey string
	HTTPClient      *http.Client
}

// S3Store implements ports.CacheStore on an S3-compatible bucket (AWS S3 or MinIO).
// Object keys are "<namespace>/<hash>.json".
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates an S3 cache store.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "s3 bucket required"), "field", "cache.s3.bucket")
	}
	region := opts.Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load aws configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.PathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		if opts.HTTPClient != nil {
			o.HTTPClient = opts.HTTPClient
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &S3Store{client: client, bucket: opts.Bucket}, nil
}

func objectKey(ns domain.CacheNamespace, id domain.RequestIdentity) string {
	return string(ns) + "/" + entryName(id)
}

// Open validates the namespace. Objects are created lazily on Put.
func (s *S3Store) Open(_ context.Context, ns domain.CacheNamespace) error {
	return ns.Validate()
}

// Get fetches and decodes the entry object.
func (s *S3Store) Get(ctx context.Context, ns domain.CacheNamespace, id domain.RequestIdentity) (*domain.CacheEntry, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}
	key := objectKey(ns, id)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to get cache object"), "key", key)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read cache object"), "key", key)
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to unmarshal cache object"), "key", key)
	}
	if !matches(&entry, id) {
		return nil, nil
	}
	return &entry, nil
}

// Put uploads the entry, overwriting any previous object.
func (s *S3Store) Put(ctx context.Context, ns domain.CacheNamespace, entry *domain.CacheEntry) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal cache entry")
	}
	key := objectKey(ns, entry.Identity)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to put cache object"), "key", key)
	}
	return nil
}

// Namespaces lists the top-level prefixes of the bucket.
func (s *S3Store) Namespaces(ctx context.Context) ([]domain.CacheNamespace, error) {
	var out []domain.CacheNamespace
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, zerr.Wrap(err, "failed to list cache namespaces")
		}
		for _, p := range page.CommonPrefixes {
			out = append(out, domain.CacheNamespace(strings.TrimSuffix(aws.ToString(p.Prefix), "/")))
		}
		if aws.ToBool(page.IsTruncated) && page.NextContinuationToken != nil {
			token = page.NextContinuationToken
			continue
		}
		return out, nil
	}
}

// DeleteNamespacesExcept deletes every object outside keep's prefix.
func (s *S3Store) DeleteNamespacesExcept(ctx context.Context, keep domain.CacheNamespace) ([]domain.CacheNamespace, error) {
	all, err := s.Namespaces(ctx)
	if err != nil {
		return nil, err
	}

	var removed []domain.CacheNamespace
	for _, ns := range all {
		if ns == keep {
			continue
		}
		if err := s.deletePrefix(ctx, string(ns)+"/"); err != nil {
			return removed, zerr.With(err, "namespace", ns.String())
		}
		removed = append(removed, ns)
	}
	return removed, nil
}

func (s *S3Store) deletePrefix(ctx context.Context, prefix string) error {
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return zerr.Wrap(err, "failed to list cache objects")
		}
		for _, obj := range page.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: obj.Key}); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to delete cache object"), "key", aws.ToString(obj.Key))
			}
		}
		if aws.ToBool(page.IsTruncated) && page.NextContinuationToken != nil {
			token = page.NextContinuationToken
			continue
		}
		return nil
	}
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
