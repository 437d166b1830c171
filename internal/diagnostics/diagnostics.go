// Package diagnostics appends failed searches to a log file the user can
// open from the launcher.
package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPath is used when no log path is configured.
const DefaultPath = "log.txt"

// Recorder writes one JSON line per failure.
type Recorder struct {
	path      string
	logger    *zap.Logger
	closeSink func()
}

// New opens path for appending, creating it when missing.
func New(path string) (*Recorder, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	sink, closeSink, err := zap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open diagnostics log %s: %w", path, err)
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, zap.InfoLevel)
	logger := zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	return &Recorder{path: path, logger: logger, closeSink: closeSink}, nil
}

// Path is the log file location.
func (r *Recorder) Path() string {
	return r.path
}

// Record appends the failed query and its error. fields add context such
// as the run id.
func (r *Recorder) Record(query string, err error, fields ...zap.Field) {
	all := make([]zap.Field, 0, len(fields)+3)
	all = append(all, zap.String("query", query), zap.Error(err))
	if chain := unwrapChain(err); len(chain) > 1 {
		all = append(all, zap.Strings("causes", chain[1:]))
	}
	all = append(all, fields...)
	r.logger.Error("search failed", all...)
}

// Close flushes the log and releases the file.
func (r *Recorder) Close() error {
	defer r.closeSink()
	if err := r.logger.Sync(); err != nil {
		return fmt.Errorf("sync diagnostics log: %w", err)
	}
	return nil
}

func unwrapChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}
