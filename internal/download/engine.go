package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/italolelis/fetchd/internal/broadcast"
	"github.com/italolelis/fetchd/internal/download/progress"
	"github.com/italolelis/fetchd/internal/logctx"
	"github.com/italolelis/fetchd/internal/permission"
	"github.com/italolelis/fetchd/internal/telemetry"
)

const DefaultChunkSize = 32 * 1024

type Options struct {
	// Dir is the resolved downloads directory, see DownloadsDir.
	Dir       string
	ChunkSize int
	Source    Source
	// Permission defaults to permission.DirChecker.
	Permission permission.Checker
	// Bridge defaults to a fresh broadcast.Bridge.
	Bridge    *broadcast.Bridge
	Handlers  []EventHandler
	Telemetry *telemetry.Telemetry
}

// Engine runs downloads one at a time on a single worker (Run) and exposes
// the state of the current or last run to any goroutine.
type Engine struct {
	dir       string
	chunkSize int
	source    Source
	perm      permission.Checker
	bridge    *broadcast.Bridge
	handlers  []EventHandler
	tel       *telemetry.Telemetry

	state    state
	requests chan Request
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("downloads directory is required")
	}

	if opts.Source == nil {
		return nil, fmt.Errorf("source is required")
	}

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	if opts.Permission == nil {
		opts.Permission = permission.DirChecker{}
	}

	if opts.Bridge == nil {
		opts.Bridge = broadcast.New()
	}

	return &Engine{
		dir:       opts.Dir,
		chunkSize: opts.ChunkSize,
		source:    opts.Source,
		perm:      opts.Permission,
		bridge:    opts.Bridge,
		handlers:  opts.Handlers,
		tel:       opts.Telemetry,
		requests:  make(chan Request, 1),
	}, nil
}

// Bridge returns the publish point observers register on.
func (e *Engine) Bridge() *broadcast.Bridge {
	return e.bridge
}

func (e *Engine) Dir() string {
	return e.dir
}

func (e *Engine) Snapshot() Snapshot {
	return e.state.get()
}

func (e *Engine) IsComplete() bool {
	return e.state.get().Completed
}

func (e *Engine) HasErrors() bool {
	return e.state.get().HasErrors
}

func (e *Engine) Progress() int {
	return e.state.get().Progress
}

// Start validates the trigger and hands it to the worker without waiting for
// the run. A malformed request is rejected here and never touches the state.
func (e *Engine) Start(ctx context.Context, rawURL, fileName string) error {
	logger := logctx.LoggerFromContext(ctx)

	req, err := NewRequest(rawURL, fileName)
	if err != nil {
		logger.Warn("rejected download request", "err", err)

		return err
	}

	select {
	case e.requests <- req:
		logger.Debug("download request accepted", "url", req.SourceURL.Redacted(), "file_name", req.FileName)

		return nil
	default:
		return ErrBusy
	}
}

// Run is the worker loop. It processes requests until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	logger := logctx.LoggerFromContext(ctx)

	logger.Info("download worker started", "dir", e.dir, "chunk_size", humanize.IBytes(uint64(e.chunkSize)))

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down download worker")

			return nil
		case req := <-e.requests:
			e.process(ctx, req)
		}
	}
}

func (e *Engine) process(ctx context.Context, req Request) {
	runID := uuid.NewString()
	ctx = logctx.WithRunID(ctx, runID)
	logger := logctx.LoggerFromContext(ctx)

	e.state.reset()
	e.emit(ctx, Event{Kind: RunStarted, RunID: runID, Request: req, Total: -1}, true)

	logger.InfoContext(ctx, "download started", "url", req.SourceURL.Redacted(), "file_name", req.FileName)

	var res result

	err := e.tel.InstrumentRun(ctx, runStatus, func(ctx context.Context) error {
		var err error

		res, err = e.transfer(ctx, runID, req)

		return err
	})

	e.tel.AddDownloadedBytes(res.written)

	done := Event{
		Kind:    RunCompleted,
		RunID:   runID,
		Request: req,
		Path:    res.path,
		Bytes:   res.written,
		Total:   res.total,
		Err:     err,
	}

	switch failure := classify(err); failure {
	case FailureNone:
		e.state.succeed()

		done.Success = true
		done.Percent = 100
		e.emit(ctx, done, true)

		logger.InfoContext(ctx, "download finished", "path", res.path, "size", humanize.Bytes(uint64(res.written)))
	case FailurePermission:
		e.state.fail(failure)

		logger.WarnContext(ctx, "download stopped: storage permission denied", "err", err)

		observed := e.bridge.Len() > 0
		e.emit(ctx, Event{Kind: NeedsPermission, RunID: runID, Request: req, Path: res.path, Err: err, Observed: observed}, observed)
		e.emit(ctx, done, false)
	default:
		e.state.fail(failure)

		logger.ErrorContext(ctx, "download failed", "path", res.path, "downloaded", humanize.Bytes(uint64(res.written)), "err", err)

		e.emit(ctx, done, true)
	}
}

type result struct {
	path    string
	written int64
	total   int64
}

func (e *Engine) transfer(ctx context.Context, runID string, req Request) (res result, err error) {
	logger := logctx.LoggerFromContext(ctx)

	body, total, err := e.source.Open(ctx, req.SourceURL)
	if err != nil {
		var transferErr *TransferError
		if !errors.As(err, &transferErr) {
			err = &TransferError{Operation: "connect", Err: err}
		}

		return res, err
	}
	defer body.Close()

	res.total = total

	if total >= 0 {
		logger.DebugContext(ctx, "source opened", "size", humanize.Bytes(uint64(total)))
	} else {
		logger.DebugContext(ctx, "source opened", "size", "unknown")
	}

	if err := e.perm.CanWrite(ctx, e.dir); err != nil {
		if errors.Is(err, permission.ErrDenied) {
			return res, &PermissionError{Dir: e.dir, Err: err}
		}

		return res, &TransferError{Operation: "create", Err: err}
	}

	if err := ensureDir(e.dir); err != nil {
		return res, storageError(e.dir, "create", err)
	}

	res.path = filepath.Join(e.dir, req.FileName)

	out, err := os.Create(res.path)
	if err != nil {
		return res, storageError(e.dir, "create", err)
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = storageError(e.dir, "write", cerr)
		}
	}()

	var pw *progress.Writer

	pw = progress.NewWriter(out, total, func(percent int) {
		e.state.setProgress(percent)
		e.emit(ctx, Event{
			Kind:    ProgressChanged,
			RunID:   runID,
			Request: req,
			Path:    res.path,
			Percent: percent,
			Bytes:   pw.Written(),
			Total:   total,
		}, true)
	})

	buf := make([]byte, e.chunkSize)

	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := pw.Write(buf[:n]); werr != nil {
				res.written = pw.Written()

				return res, storageError(e.dir, "write", werr)
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}

		if rerr != nil {
			res.written = pw.Written()

			return res, &TransferError{Operation: "read", Err: rerr}
		}
	}

	res.written = pw.Written()

	return res, nil
}

// emit signals observers when publish is set, then hands ev to every handler.
func (e *Engine) emit(ctx context.Context, ev Event, publish bool) {
	if publish {
		e.bridge.Publish()
		e.tel.RecordStateNotification(ev.Kind.String())
	}

	for _, h := range e.handlers {
		h.Handle(ctx, ev)
	}
}

func storageError(dir, op string, err error) error {
	if errors.Is(err, os.ErrPermission) {
		return &PermissionError{Dir: dir, Err: err}
	}

	return &TransferError{Operation: op, Err: err}
}
