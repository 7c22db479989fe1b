// Package s3 implements the content store on Amazon S3 or any compatible
// object store (MinIO, Localstack).
//
// One content ID maps to one object under a configurable key prefix. The
// store issues plain PutObject/GetObject calls; content written through the
// adapter is buffered per handle and flushed whole, so multipart uploads
// are not needed here.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/clusterfs/clusterfs/pkg/content"
)

// Config holds the settings for an S3 content store.
type Config struct {
	// Client is a configured S3 client.
	Client *awss3.Client

	// Bucket is the bucket holding the content objects.
	Bucket string

	// KeyPrefix is prepended to every object key, e.g. "content/".
	KeyPrefix string
}

// Store is the S3-backed content store.
type Store struct {
	client    *awss3.Client
	bucket    string
	keyPrefix string
}

// New creates an S3 content store. The bucket must already exist; the store
// never creates or configures buckets.
func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 content store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 content store: bucket is required")
	}
	return &Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *Store) key(id content.ID) string {
	return s.keyPrefix + string(id)
}

func (s *Store) Read(ctx context.Context, id content.ID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read content from S3: %w", err)
	}
	return out.Body, nil
}

func (s *Store) Write(ctx context.Context, id content.ID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to write content to S3: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id content.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// DeleteObject succeeds for missing keys, matching the idempotent
	// delete contract.
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete content from S3: %w", err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, id content.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check content existence in S3: %w", err)
	}
	return true, nil
}

func (s *Store) Size(ctx context.Context, id content.ID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, content.ErrNotFound
		}
		return 0, fmt.Errorf("failed to get content size from S3: %w", err)
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf("S3 returned no content length for %s", id)
	}
	return *out.ContentLength, nil
}

// Stats lists every object under the key prefix and sums sizes. Listing a
// large bucket is expensive; callers should treat this as an administrative
// operation, not a hot path.
func (s *Store) Stats(ctx context.Context) (*content.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &content.Stats{}
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list content in S3: %w", err)
		}
		for _, obj := range page.Contents {
			stats.Objects++
			if obj.Size != nil {
				stats.UsedBytes += *obj.Size
			}
		}
	}
	return stats, nil
}

var _ content.Store = (*Store)(nil)
