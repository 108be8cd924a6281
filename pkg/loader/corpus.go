package loader

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/sentence"
)

// Corpus maps a document key to its sentences in document order.
type Corpus map[string][]*sentence.Sentence

// Sentences returns all sentences, documents visited in key order.
func (c Corpus) Sentences() []*sentence.Sentence {
	var out []*sentence.Sentence
	for _, key := range c.Keys() {
		out = append(out, c[key]...)
	}
	return out
}

// Keys returns the sorted document keys.
func (c Corpus) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type jsonSentence struct {
	ID           string           `json:"id"`
	Tokens       []sentence.Token `json:"tokens"`
	Dependencies []rawDependency  `json:"dependencies"`
}

type forgetter interface {
	Forget(path string)
}

// LoadAbstracts loads a corpus from path. A directory is read as one
// CoreNLP XML file per document (*.xml or *.xml.gz, key = file stem); a
// file is read as a JSON corpus (optionally gzip'd) mapping keys to
// sentences. All returned sentences have their dependency matrix built.
func LoadAbstracts(ctx context.Context, src Source, p string, opts Options) (Corpus, error) {
	names, err := src.List(ctx, p)
	if errors.Is(err, ErrNotDir) {
		return loadJSONCorpus(ctx, src, p, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus %s: %w", p, err)
	}

	var files []string
	for _, name := range names {
		if documentKey(name) != "" {
			files = append(files, name)
		}
	}

	opts.start(len(files))
	defer opts.stop()

	corpus := make(Corpus, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := documentKey(name)

		content, err := readMaybeGzip(ctx, src, name)
		if err != nil {
			return nil, err
		}
		sentences, err := ParseCoreNLP(key, content)
		if err != nil {
			return nil, err
		}
		if f, ok := src.(forgetter); ok {
			f.Forget(name)
		}

		corpus[key] = opts.filter(sentences)
		opts.step(key)
	}

	logger.Debug("[Loader] Corpus loaded", "path", p, "documents", len(corpus))
	return corpus, nil
}

func loadJSONCorpus(ctx context.Context, src Source, p string, opts Options) (Corpus, error) {
	content, err := readMaybeGzip(ctx, src, p)
	if err != nil {
		return nil, err
	}

	var raw map[string][]jsonSentence
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode corpus %s: %w", p, err)
	}

	opts.start(len(raw))
	defer opts.stop()

	corpus := make(Corpus, len(raw))
	for key, sentences := range raw {
		doc := make([]*sentence.Sentence, 0, len(sentences))
		for _, js := range sentences {
			s, err := buildSentence(key+":"+js.ID, js.Tokens, js.Dependencies)
			if err != nil {
				return nil, fmt.Errorf("corpus %s: %w", p, err)
			}
			doc = append(doc, s)
		}
		corpus[key] = opts.filter(doc)
		opts.step(key)
	}

	logger.Debug("[Loader] Corpus loaded", "path", p, "documents", len(corpus))
	return corpus, nil
}

// WriteCorpus encodes c in the JSON corpus format read by LoadAbstracts.
func WriteCorpus(w io.Writer, c Corpus) error {
	raw := make(map[string][]jsonSentence, len(c))
	for key, sentences := range c {
		doc := make([]jsonSentence, len(sentences))
		for i, s := range sentences {
			js := jsonSentence{
				ID:     strings.TrimPrefix(s.ID, key+":"),
				Tokens: make([]sentence.Token, 0, s.Len()),
			}
			for _, t := range s.Tokens[1:] {
				js.Tokens = append(js.Tokens, *t)
			}
			for _, d := range s.Dependencies {
				js.Dependencies = append(js.Dependencies, rawDependency{
					Type:      d.Type,
					Governor:  d.Governor.ID,
					Dependent: d.Dependent.ID,
				})
			}
			doc[i] = js
		}
		raw[key] = doc
	}
	return json.NewEncoder(w).Encode(raw)
}

func (o Options) filter(sentences []*sentence.Sentence) []*sentence.Sentence {
	if o.Entity1 == "" || o.Entity2 == "" {
		return sentences
	}
	out := sentences[:0]
	for _, s := range sentences {
		if _, ok := s.GenerateEntityPairs(o.Entity1, o.Entity2); ok {
			out = append(out, s)
		}
	}
	return out
}

func readMaybeGzip(ctx context.Context, src Source, p string) ([]byte, error) {
	content, err := src.ReadFile(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	if !strings.HasSuffix(p, ".gz") {
		return content, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip %s: %w", p, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", p, err)
	}
	return out, nil
}

// documentKey returns the stem of a CoreNLP file name, or "" for other files.
func documentKey(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, ".gz")
	if !strings.HasSuffix(base, ".xml") {
		return ""
	}
	return strings.TrimSuffix(base, ".xml")
}
