package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gzhole/talentguard/internal/metrics"
	"github.com/gzhole/talentguard/internal/pipeline"
)

// runtime is a pipeline wired to the configured audit log, plus the registry
// its metrics are recorded on.
type runtime struct {
	pipeline *pipeline.Pipeline
	registry *prometheus.Registry
	close    func(ctx context.Context) error
}

func openRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	lib, _, err := loadLibrary(cfg)
	if err != nil {
		return nil, err
	}

	log := newLogger()
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg, log)

	auditor, err := pipeline.OpenAuditor(cfg.Audit, log, m)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &runtime{
		pipeline: pipeline.New(
			pipeline.WithConfig(cfg),
			pipeline.WithLibrary(lib),
			pipeline.WithAuditor(auditor),
			pipeline.WithMetrics(m),
			pipeline.WithLogger(log),
		),
		registry: reg,
		close: func(ctx context.Context) error {
			err := auditor.Close(ctx)
			_ = log.Sync()
			return err
		},
	}, nil
}

// shutdown flushes the audit queue. A flush failure is reported but does not
// change the command's result.
func (r *runtime) shutdown(stderr io.Writer) {
	ctx, cancel := context.WithTimeout(context.Background(), auditCloseTimeout)
	defer cancel()
	if err := r.close(ctx); err != nil {
		fmt.Fprintf(stderr, "[TalentGuard] audit flush: %v\n", err)
	}
}
