package model

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/OFFIS-RIT/relex/internal/storage"
	"github.com/OFFIS-RIT/relex/pkg/classifier"
	"github.com/OFFIS-RIT/relex/pkg/features"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FormatVersion is written into every bundle; Decode rejects other versions.
const FormatVersion = 1

var (
	ErrVersion  = errors.New("unsupported model format version")
	ErrNoClient = errors.New("s3 location given without an s3 client")
)

// Meta describes how a bundle was trained.
type Meta struct {
	RunID     string    `json:"run_id,omitempty"`
	Entity1   string    `json:"entity_1"`
	Entity2   string    `json:"entity_2"`
	Symmetric bool      `json:"symmetric"`
	Instances int       `json:"instances"`
	Positives int       `json:"positives"`
	TrainedAt time.Time `json:"trained_at"`
}

// Bundle is everything prediction needs: the trained classifier and the
// dictionaries that define its feature space.
type Bundle struct {
	Version    int                            `json:"version"`
	Meta       Meta                           `json:"meta"`
	Classifier *classifier.LogisticRegression `json:"classifier"`
	Features   features.Set                   `json:"features"`
}

// New wraps a trained classifier and its dictionaries.
func New(clf *classifier.LogisticRegression, set features.Set, meta Meta) *Bundle {
	return &Bundle{
		Version:    FormatVersion,
		Meta:       meta,
		Classifier: clf,
		Features:   set,
	}
}

// Encode writes b as gzip'd JSON.
func (b *Bundle) Encode(w io.Writer) error {
	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(b); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress model: %w", err)
	}
	return nil
}

// Decode reads a bundle written by Encode.
func Decode(r io.Reader) (*Bundle, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open model: %w", err)
	}
	defer zr.Close()

	var b Bundle
	if err := json.NewDecoder(zr).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if b.Version != FormatVersion {
		return nil, fmt.Errorf("version %d: %w", b.Version, ErrVersion)
	}
	if b.Classifier == nil {
		return nil, errors.New("model has no classifier")
	}
	return &b, nil
}

// Save writes b to a local path or an s3:// URI. client may be nil for
// local paths.
func Save(ctx context.Context, b *Bundle, uri string, client *s3.Client) error {
	var buf bytes.Buffer
	if err := b.Encode(&buf); err != nil {
		return err
	}

	if loc, ok := storage.ParseURI(uri); ok {
		if client == nil {
			return fmt.Errorf("%s: %w", uri, ErrNoClient)
		}
		return storage.PutFile(ctx, client, loc, buf.Bytes(), "application/gzip")
	}

	if err := os.WriteFile(uri, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write model %s: %w", uri, err)
	}
	return nil
}

// Load reads a bundle from a local path or an s3:// URI.
func Load(ctx context.Context, uri string, client *s3.Client) (*Bundle, error) {
	var content []byte
	if loc, ok := storage.ParseURI(uri); ok {
		if client == nil {
			return nil, fmt.Errorf("%s: %w", uri, ErrNoClient)
		}
		data, err := storage.GetFile(ctx, client, loc)
		if err != nil {
			return nil, err
		}
		content = data
	} else {
		data, err := os.ReadFile(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to read model %s: %w", uri, err)
		}
		content = data
	}

	b, err := Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	return b, nil
}
