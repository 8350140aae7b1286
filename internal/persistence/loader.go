package persistence

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
)

// DispatchFunc executes one parsed command, writing its reply into out. The
// loader feeds it replayed frames; replies go to a drained scratch buffer,
// the null sink, and are never looked at.
type DispatchFunc func(out *bytebuf.Buffer, args [][]byte)

// Load replays the append log through dispatch. A missing or empty file is
// a fresh start, not an error. A trailing incomplete frame means the log was
// truncated mid-append: the valid prefix is loaded and the truncation offset
// logged. Returns the number of commands replayed.
func Load(filename string, dispatch DispatchFunc, logger *zap.Logger) (int, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no append log found, starting fresh", zap.String("file", filename))
			return 0, nil
		}
		return 0, fmt.Errorf("read append log: %w", err)
	}
	if len(data) == 0 {
		logger.Info("append log is empty, starting fresh", zap.String("file", filename))
		return 0, nil
	}

	var buf bytebuf.Buffer
	buf.Append(data)

	var sink bytebuf.Buffer
	count := 0

	for buf.ReadableBytes() > 0 {
		args, ok := resp.Parse(&buf)
		if !ok {
			logger.Warn("append log truncated, loading valid prefix",
				zap.String("file", filename),
				zap.Int("offset", len(data)-buf.ReadableBytes()),
				zap.Int("trailing_bytes", buf.ReadableBytes()),
				zap.Int("commands", count))
			break
		}
		if len(args) == 0 {
			continue
		}

		dispatch(&sink, args)
		sink.Consume(sink.ReadableBytes())
		count++
	}

	logger.Info("append log loaded",
		zap.String("file", filename), zap.Int("commands", count))
	return count, nil
}
