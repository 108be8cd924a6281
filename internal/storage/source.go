package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/OFFIS-RIT/relex/pkg/loader"
	loaderio "github.com/OFFIS-RIT/relex/pkg/loader/io"
	loaders3 "github.com/OFFIS-RIT/relex/pkg/loader/s3"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// OpenSource returns the loader source able to read uri and the path to
// pass to it. s3:// URIs need a client.
func OpenSource(uri string, client *s3.Client) (loader.Source, string, error) {
	loc, ok := ParseURI(uri)
	if !ok {
		return loaderio.NewFileSource(), uri, nil
	}
	if client == nil {
		return nil, "", fmt.Errorf("%s: no s3 client configured", uri)
	}
	return loaders3.NewBucketSource(loc.Bucket, client), loc.Key, nil
}

// WriteObject stores body at a local path or an s3:// URI.
func WriteObject(ctx context.Context, client *s3.Client, uri string, body []byte, contentType string) error {
	loc, ok := ParseURI(uri)
	if !ok {
		if err := os.WriteFile(uri, body, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", uri, err)
		}
		return nil
	}
	if client == nil {
		return fmt.Errorf("%s: no s3 client configured", uri)
	}
	return PutFile(ctx, client, loc, body, contentType)
}
