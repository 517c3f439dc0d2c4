// Package presenter turns engine events into things a person sees: a live
// progress line while the service runs in the foreground, and an alert when a
// run needs storage permission and nobody is watching.
package presenter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/fetchd/internal/download"
	"github.com/italolelis/fetchd/internal/logctx"
	"github.com/italolelis/fetchd/internal/notifier"
)

const barWidth = 20

type Options struct {
	// Foreground enables the progress indicator from the start.
	Foreground bool
	// Output receives the indicator line, typically os.Stderr.
	Output io.Writer
	// Alerter delivers the needs-permission alert.
	Alerter notifier.Notifier
}

// Presenter implements download.EventHandler.
type Presenter struct {
	out     io.Writer
	alerter notifier.Notifier

	mu         sync.Mutex
	foreground bool
	drawn      bool
	active     bool
	current    download.Event
}

func New(opts Options) *Presenter {
	out := opts.Output
	if out == nil {
		out = io.Discard
	}

	return &Presenter{
		out:        out,
		alerter:    opts.Alerter,
		foreground: opts.Foreground,
	}
}

// SetForegroundVisible shows the indicator for the active run right away, or
// tears it down.
func (p *Presenter) SetForegroundVisible(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.foreground = visible

	switch {
	case visible && p.active:
		p.draw()
	case !visible && p.drawn:
		fmt.Fprint(p.out, "\r\033[K")
		p.drawn = false
	}
}

func (p *Presenter) ForegroundVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.foreground
}

func (p *Presenter) Handle(ctx context.Context, ev download.Event) {
	switch ev.Kind {
	case download.RunStarted, download.ProgressChanged:
		p.mu.Lock()
		p.active = true
		p.current = ev

		if p.foreground {
			p.draw()
		}
		p.mu.Unlock()
	case download.NeedsPermission:
		if !ev.Observed {
			p.alert(ctx, ev)
		}
	case download.RunCompleted:
		p.mu.Lock()
		p.active = false
		p.current = ev

		if p.foreground && p.drawn {
			p.draw()
			fmt.Fprintln(p.out)
			p.drawn = false
		}
		p.mu.Unlock()
	}
}

func (p *Presenter) alert(ctx context.Context, ev download.Event) {
	logger := logctx.LoggerFromContext(ctx)

	if p.alerter == nil {
		logger.WarnContext(ctx, "storage permission needed but no alerter configured", "file_name", ev.Request.FileName)

		return
	}

	content := fmt.Sprintf("⚠️ No permission to save %s. Grant write access to the downloads directory and start the download again.", ev.Request.FileName)

	if err := p.alerter.Notify(ctx, content); err != nil {
		logger.ErrorContext(ctx, "failed to send permission alert", "err", err)
	}
}

// draw rewrites the indicator line. Callers hold p.mu.
func (p *Presenter) draw() {
	fmt.Fprint(p.out, "\r\033[K"+renderLine(p.current))
	p.drawn = true
}

func renderLine(ev download.Event) string {
	percent := ev.Percent
	status := "downloading"

	if ev.Kind == download.RunCompleted {
		status = "done"
		if !ev.Success {
			status = "failed"
			percent = 0
		}
	}

	filled := percent * barWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)

	size := humanize.Bytes(uint64(max(ev.Bytes, 0)))
	if ev.Total > 0 {
		size += " / " + humanize.Bytes(uint64(ev.Total))
	}

	return fmt.Sprintf("%s %s [%s] %3d%% %s", status, ev.Request.FileName, bar, percent, size)
}
