package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// FsyncPolicy controls when the append log is forced to disk.
type FsyncPolicy int

const (
	// FsyncAlways syncs after every appended command.
	FsyncAlways FsyncPolicy = iota + 1
	// FsyncEverySec syncs from the timer tick, at most once a second.
	FsyncEverySec
	// FsyncNo leaves flushing to the kernel.
	FsyncNo
)

// ParsePolicy maps the config strings always / everysec / no.
func ParsePolicy(s string) FsyncPolicy {
	switch s {
	case "always":
		return FsyncAlways
	case "no":
		return FsyncNo
	default:
		return FsyncEverySec
	}
}

// ErrRewriteInProgress is returned when a rewrite is triggered while one is
// already running.
var ErrRewriteInProgress = errors.New("append log rewrite already in progress")

type rewriteState int

const (
	rewriteIdle rewriteState = iota
	rewriteRunning
	rewriteSwapping
)

// Log appends executed write-commands to the append-only file, one RESP
// array frame each, and compacts it in the background on demand.
//
// All methods are called from the serving loop's goroutine. During a
// rewrite a helper goroutine writes the snapshot to the temp file; it shares
// nothing with the Log except the completion channel, so no locking is
// needed anywhere.
type Log struct {
	file     *os.File
	filename string
	policy   FsyncPolicy

	lastFsync time.Time
	logger    *zap.Logger

	state       rewriteState
	rewriteBuf  [][]byte
	rewriteDone chan error
	tempName    string
}

// Open opens (or creates) the append log for appending.
func Open(filename string, policy FsyncPolicy, logger *zap.Logger) (*Log, error) {
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open append log: %w", err)
	}
	return &Log{
		file:      f,
		filename:  filename,
		policy:    policy,
		lastFsync: time.Now(),
		logger:    logger,
	}, nil
}

// Filename returns the path of the live log.
func (l *Log) Filename() string { return l.filename }

// Append writes one serialized command frame. Write and sync failures
// degrade durability — the mutation is already applied in memory — so they
// are logged and swallowed, never surfaced to the client.
func (l *Log) Append(frame []byte) {
	if l.file != nil {
		if n, err := l.file.Write(frame); err != nil {
			l.logger.Warn("append log write failed, durability degraded",
				zap.Int("written", n), zap.Error(err))
		} else if l.policy == FsyncAlways {
			if err := l.file.Sync(); err != nil {
				l.logger.Warn("append log fsync failed", zap.Error(err))
			}
		}
	}

	// While a rewrite runs, every new frame is also kept for the swap.
	if l.state == rewriteRunning || l.state == rewriteSwapping {
		buffered := make([]byte, len(frame))
		copy(buffered, frame)
		l.rewriteBuf = append(l.rewriteBuf, buffered)
	}
}

// Tick runs the periodic duties: the everysec fsync and the non-blocking
// rewrite completion check.
func (l *Log) Tick() {
	if l.policy == FsyncEverySec && l.file != nil && time.Since(l.lastFsync) >= time.Second {
		if err := l.file.Sync(); err != nil {
			l.logger.Warn("append log fsync failed", zap.Error(err))
		}
		l.lastFsync = time.Now()
	}

	l.checkRewriteDone()
}

// Rewriting reports whether a compaction is in flight.
func (l *Log) Rewriting() bool { return l.state != rewriteIdle }

// TriggerRewrite starts a background compaction from the given snapshot —
// the serialized reconstruction commands for every live key, taken
// synchronously by the caller. The snapshot goes to a temp file off the
// serving goroutine; frames appended in the meantime are buffered and
// stitched on after the snapshot lands, then the temp file atomically
// replaces the live log.
func (l *Log) TriggerRewrite(snapshot []byte) error {
	if l.state != rewriteIdle {
		return ErrRewriteInProgress
	}

	l.state = rewriteRunning
	l.rewriteBuf = nil
	l.rewriteDone = make(chan error, 1)
	// Sibling of the live log, so the final rename never crosses a
	// filesystem boundary.
	l.tempName = filepath.Join(filepath.Dir(l.filename),
		fmt.Sprintf("temp-rewrite-%d.aof", os.Getpid()))

	l.logger.Info("append log rewrite started",
		zap.String("temp", l.tempName), zap.Int("snapshot_bytes", len(snapshot)))

	go func(name string, data []byte, done chan<- error) {
		done <- writeSnapshot(name, data)
	}(l.tempName, snapshot, l.rewriteDone)

	return nil
}

func writeSnapshot(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (l *Log) checkRewriteDone() {
	if l.state != rewriteRunning {
		return
	}

	select {
	case err := <-l.rewriteDone:
		if err != nil {
			l.logger.Error("append log rewrite failed", zap.Error(err))
			os.Remove(l.tempName)
			l.finishRewrite()
			return
		}
		l.state = rewriteSwapping
		l.swapRewrite()
	default:
		// snapshot writer still running
	}
}

// swapRewrite appends the buffered frames to the temp file, fsyncs, renames
// it over the live log and reopens the log for appending.
func (l *Log) swapRewrite() {
	tmp, err := os.OpenFile(l.tempName, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.logger.Error("append log rewrite: reopen temp failed", zap.Error(err))
		os.Remove(l.tempName)
		l.finishRewrite()
		return
	}
	for _, frame := range l.rewriteBuf {
		if _, err := tmp.Write(frame); err != nil {
			l.logger.Error("append log rewrite: buffer append failed", zap.Error(err))
			tmp.Close()
			os.Remove(l.tempName)
			l.finishRewrite()
			return
		}
	}
	if err := tmp.Sync(); err != nil {
		l.logger.Warn("append log rewrite: temp fsync failed", zap.Error(err))
	}
	tmp.Close()

	if err := os.Rename(l.tempName, l.filename); err != nil {
		l.logger.Error("append log rewrite: rename failed", zap.Error(err))
		os.Remove(l.tempName)
		l.finishRewrite()
		return
	}

	if l.file != nil {
		l.file.Close()
	}
	f, err := os.OpenFile(l.filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		l.logger.Error("append log rewrite: reopen live log failed", zap.Error(err))
		l.file = nil
	} else {
		l.file = f
	}

	l.logger.Info("append log rewrite finished",
		zap.Int("buffered_frames", len(l.rewriteBuf)))
	l.finishRewrite()
}

func (l *Log) finishRewrite() {
	l.state = rewriteIdle
	l.rewriteBuf = nil
	l.rewriteDone = nil
	l.tempName = ""
}

// Close syncs and closes the live log. A rewrite still in flight is
// abandoned; its temp file is removed.
func (l *Log) Close() error {
	if l.state != rewriteIdle && l.tempName != "" {
		os.Remove(l.tempName)
		l.finishRewrite()
	}
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.logger.Warn("append log fsync on close failed", zap.Error(err))
	}
	return l.file.Close()
}
