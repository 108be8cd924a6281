package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/relex/pkg/loader"
)

// BucketSource is a loader.Source implementation that reads corpus objects
// from an S3 bucket. Directories are key prefixes.
type BucketSource struct {
	bucket string
	client *s3.Client

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewBucketSource creates a source on bucket using an existing client.
func NewBucketSource(bucket string, client *s3.Client) *BucketSource {
	return &BucketSource{
		bucket: bucket,
		client: client,
		cache:  make(map[string][]byte),
	}
}

// ReadFile retrieves the object stored under key. Results are cached.
func (l *BucketSource) ReadFile(ctx context.Context, key string) ([]byte, error) {
	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get s3://%s/%s: %w", l.bucket, key, err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, fmt.Errorf("failed to read s3://%s/%s: %w", l.bucket, key, err)
		}

		byts := buf.Bytes()

		l.cacheMu.Lock()
		l.cache[key] = byts
		l.cacheMu.Unlock()

		return byts, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// List returns the keys directly below the prefix dir, sorted.
func (l *BucketSource) List(ctx context.Context, dir string) ([]string, error) {
	prefix := strings.TrimSuffix(dir, "/") + "/"

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(l.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", l.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	if len(keys) == 0 {
		_, err := l.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(dir),
		})
		if err == nil {
			return nil, fmt.Errorf("s3://%s/%s: %w", l.bucket, dir, loader.ErrNotDir)
		}
	}

	slices.Sort(keys)
	return keys, nil
}

// Forget drops key from the cache.
func (l *BucketSource) Forget(key string) {
	l.cacheMu.Lock()
	delete(l.cache, key)
	l.cacheMu.Unlock()
}
