package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gzhole/talentguard/internal/config"
	"github.com/gzhole/talentguard/internal/logger"
	"github.com/gzhole/talentguard/internal/metrics"
)

// OpenAuditor builds the asynchronous auditor described by cfg. Dropped
// events are counted on m when it is non-nil.
func OpenAuditor(cfg config.AuditConfig, log *zap.Logger, m *metrics.Collector) (*logger.AsyncAuditor, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var sinks logger.MultiSink
	if cfg.Sink == config.SinkJSONL || cfg.Sink == config.SinkBoth {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
			return nil, fmt.Errorf("create audit log dir: %w", err)
		}
		file, err := logger.NewFileSink(cfg.Path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, file)
	}
	if cfg.Sink == config.SinkZap || cfg.Sink == config.SinkBoth {
		sinks = append(sinks, logger.NewZapSink(log))
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("unknown audit sink %q", cfg.Sink)
	}

	var sink logger.Sink = sinks
	if len(sinks) == 1 {
		sink = sinks[0]
	}

	opts := []logger.AsyncOption{
		logger.WithQueueSize(cfg.QueueSize),
		logger.WithLogger(log),
	}
	if m != nil {
		opts = append(opts, logger.WithDropHook(m.RecordAuditDrop))
	}
	return logger.NewAsyncAuditor(sink, opts...), nil
}
