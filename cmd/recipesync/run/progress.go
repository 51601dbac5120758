package run

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/GjhanAi/albion-recipes/internal/stage"
)

const defaultProgressInterval = 500 * time.Millisecond

type progressReporter struct {
	enabled  bool
	interval time.Duration
	w        io.Writer

	mu        sync.Mutex
	stageName string
	recipes   int
	rows      int
}

func newProgressReporter(enabled bool, w io.Writer) *progressReporter {
	if !enabled {
		return &progressReporter{enabled: false}
	}
	return &progressReporter{
		enabled:  true,
		interval: defaultProgressInterval,
		w:        w,
	}
}

func (p *progressReporter) runStage(ctx context.Context, name string, in stage.Envelope, deps stage.Deps) (stage.Envelope, error) {
	if p == nil || !p.enabled {
		return stage.Run(ctx, name, in, deps)
	}

	p.setSnapshot(name, len(in.Recipes), len(in.Rows))
	p.emit()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				p.emit()
			case <-done:
				return
			}
		}
	}()

	out, err := stage.Run(ctx, name, in, deps)
	close(done)
	if err == nil {
		p.setSnapshot(name, len(out.Recipes), len(out.Rows))
		p.emit()
	}
	return out, err
}

func (p *progressReporter) setSnapshot(stageName string, recipes, rows int) {
	p.mu.Lock()
	p.stageName = stageName
	p.recipes = recipes
	p.rows = rows
	p.mu.Unlock()
}

func (p *progressReporter) emit() {
	if p == nil || !p.enabled || p.w == nil {
		return
	}
	p.mu.Lock()
	_, _ = fmt.Fprintf(p.w, "progress stage=%s recipes=%d rows=%d\n", p.stageName, p.recipes, p.rows)
	p.mu.Unlock()
}
