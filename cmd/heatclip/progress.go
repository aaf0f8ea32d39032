package main

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"heatclip/internal/dataset"
)

// terminalProgress draws one bar per stage on a terminal.
type terminalProgress struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// newProgress returns a bar renderer when out is a terminal and nil otherwise,
// which leaves the pipeline on its silent default.
func newProgress(out io.Writer) dataset.Progress {
	if !isTerminal(out) {
		return nil
	}
	return &terminalProgress{out: out}
}

func (p *terminalProgress) Begin(stage string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(stage),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *terminalProgress) Step() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *terminalProgress) End() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
