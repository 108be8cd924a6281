package util

import (
	"sync"

	"github.com/gosuri/uiprogress"
)

// BarProgress renders a terminal progress bar while a corpus is loaded.
// It satisfies loader.Progress.
type BarProgress struct {
	mu      sync.Mutex
	bar     *uiprogress.Bar
	current string
}

// NewBarProgress returns an idle progress bar. Rendering starts with Start.
func NewBarProgress() *BarProgress {
	return &BarProgress{}
}

func (p *BarProgress) Start(total int) {
	uiprogress.Start()
	p.bar = uiprogress.AddBar(total)
	p.bar.AppendCompleted()
	p.bar.PrependElapsed()
	p.bar.AppendFunc(func(b *uiprogress.Bar) string {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.current
	})
}

func (p *BarProgress) Step(name string) {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	p.current = name
	p.mu.Unlock()
	p.bar.Incr()
}

func (p *BarProgress) Stop() {
	if p.bar == nil {
		return
	}
	uiprogress.Stop()
	p.bar = nil
}
