package logger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gzhole/talentguard/internal/redact"
	"go.uber.org/zap"
)

// Sink persists audit events. Write is called from a single goroutine by
// AsyncAuditor but sinks must still tolerate concurrent use.
type Sink interface {
	Write(e Event) error
	Close() error
}

// defaultMaxLogBytes is the size at which the JSONL file is rotated.
const defaultMaxLogBytes = 10 << 20

// FileSink appends events to a JSON Lines file with 0600 permissions and a
// single .1 backup on rotation.
type FileSink struct {
	path     string
	maxBytes int64
	file     *os.File
	size     int64
	mu       sync.Mutex
}

// NewFileSink opens (or creates) the audit log at path.
func NewFileSink(path string) (*FileSink, error) {
	s := &FileSink{path: path, maxBytes: defaultMaxLogBytes}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) open() error {
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open audit log %q: %w", s.path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat audit log %q: %w", s.path, err)
	}
	s.file = file
	s.size = info.Size()
	return nil
}

func (s *FileSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(s.path, s.path+".1"); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}
	return s.open()
}

// Write scrubs secrets from string details and appends one JSON line.
func (s *FileSink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return os.ErrClosed
	}

	e.Details = scrubDetails(e.Details)
	if e.Request != nil {
		rec := *e.Request
		rec.TargetResource = redact.Redact(rec.TargetResource)
		e.Request = &rec
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if s.size > 0 && s.size+int64(len(data)) > s.maxBytes {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	n, err := s.file.Write(data)
	s.size += int64(n)
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func scrubDetails(details map[string]any) map[string]any {
	if len(details) == 0 {
		return details
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		switch val := v.(type) {
		case string:
			out[k] = redact.Redact(val)
		case []string:
			out[k] = redact.RedactArgs(val)
		default:
			out[k] = v
		}
	}
	return out
}

// ZapSink forwards audit events to a zap logger. Security events are logged
// at warn level, request records at info.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink wraps log. A nil logger yields a no-op sink.
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log.With(zap.String("component", "audit"))}
}

func (s *ZapSink) Write(e Event) error {
	fields := []zap.Field{
		zap.String("event_id", e.ID),
		zap.String("event_type", e.Type),
		zap.String("timestamp", e.Timestamp),
	}
	if e.Request != nil {
		fields = append(fields,
			zap.String("request_id", e.Request.RequestID),
			zap.String("user_id", e.Request.UserID),
			zap.String("role", e.Request.Role),
			zap.String("intent", e.Request.Intent),
			zap.String("target_resource", e.Request.TargetResource),
			zap.String("decision", e.Request.Decision),
			zap.Float64("risk_score", e.Request.RiskScore),
		)
		s.log.Info("request", fields...)
		return nil
	}
	if len(e.Details) > 0 {
		fields = append(fields, zap.Any("details", scrubDetails(e.Details)))
	}
	s.log.Warn("security event", fields...)
	return nil
}

func (s *ZapSink) Close() error {
	// Sync on stderr/stdout cores returns EINVAL on some platforms; ignore it.
	_ = s.log.Sync()
	return nil
}

// MultiSink fans events out to several sinks.
type MultiSink []Sink

func (m MultiSink) Write(e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
