// Package telemetry wires the indexer's structured logging and metrics
// onto the teacher's own observability libraries:
// github.com/luxfi/log (grounded on luxfi-evm's network.go / test-readonly-db.go
// call sites, "log.New(\"info\")") for the primary logger, and
// github.com/prometheus/client_golang for metrics.
package telemetry

import (
	"log/slog"

	luxlog "github.com/luxfi/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lux-labs/balance-indexer/internal/streamer"
)

// Log adapts a github.com/luxfi/log Logger to the narrow streamer.Logger
// interface the pipeline depends on, optionally mirroring every line to
// a rotated file via lumberjack (the teacher's go.mod carries
// gopkg.in/natefinch/lumberjack.v2 for exactly this).
type Log struct {
	inner luxlog.Logger
	file  *slog.Logger
}

var _ streamer.Logger = (*Log)(nil)

// NewLog builds a Log at the given level (trace, debug, info, warn,
// error, crit). When logFile is non-empty, Info, Warn and Error lines
// are also appended there in JSON, rotated at 100MB/10 backups/28 days;
// the file sink uses slog's default Info threshold, so Debug lines are
// not written there and level does not filter it.
func NewLog(level, logFile string) (*Log, error) {
	l := luxlog.New(level)

	log := &Log{inner: l}
	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     28,
			Compress:   true,
		}
		log.file = slog.New(slog.NewJSONHandler(rotator, nil))
	}
	return log, nil
}

func (l *Log) Info(msg string, ctx ...interface{}) {
	l.inner.Info(msg, ctx...)
	if l.file != nil {
		l.file.Info(msg, ctx...)
	}
}

func (l *Log) Error(msg string, ctx ...interface{}) {
	l.inner.Error(msg, ctx...)
	if l.file != nil {
		l.file.Error(msg, ctx...)
	}
}

func (l *Log) Warn(msg string, ctx ...interface{}) {
	l.inner.Warn(msg, ctx...)
	if l.file != nil {
		l.file.Warn(msg, ctx...)
	}
}

func (l *Log) Debug(msg string, ctx ...interface{}) {
	l.inner.Debug(msg, ctx...)
	if l.file != nil {
		l.file.Debug(msg, ctx...)
	}
}
