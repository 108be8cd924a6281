package loader

import (
	"context"
	"errors"
)

// ErrNotDir is returned by Source.List when the path names a file.
var ErrNotDir = errors.New("not a directory")

// Source provides raw file contents. Paths are interpreted by the
// implementation: a filesystem path for the io source, an object key for
// the s3 source.
type Source interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// List returns the sorted names of the files directly below dir. It
	// returns ErrNotDir when dir is a file.
	List(ctx context.Context, dir string) ([]string, error)
}

// Progress is notified while a corpus directory is read. It may be nil.
type Progress interface {
	Start(total int)
	Step(name string)
	Stop()
}

// Options tunes LoadAbstracts.
type Options struct {
	// Entity1 and Entity2, when both set, keep only sentences mentioning
	// both NER tags.
	Entity1 string
	Entity2 string
	// Progress receives one step per corpus file.
	Progress Progress
}

func (o Options) start(total int) {
	if o.Progress != nil {
		o.Progress.Start(total)
	}
}

func (o Options) step(name string) {
	if o.Progress != nil {
		o.Progress.Step(name)
	}
}

func (o Options) stop() {
	if o.Progress != nil {
		o.Progress.Stop()
	}
}
