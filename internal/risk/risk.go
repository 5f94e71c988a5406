// Package risk aggregates threat signals into one advisory score in [0,1].
// The score never gates a request; callers use it for throttling and alerts.
package risk

import (
	"math"

	"github.com/gzhole/talentguard/internal/guardian"
)

// Default thresholds and penalties.
const (
	DefaultHighDenialCount   = 3
	DefaultHighDenialPenalty = 0.3
	DefaultLowDenialCount    = 1
	DefaultLowDenialPenalty  = 0.1
	DefaultVolumeThreshold   = 50
	DefaultVolumePenalty     = 0.2
)

// SessionCounters are owned by the caller and passed by value.
type SessionCounters struct {
	DenialCount     int
	SessionRequests int
}

// Config holds the scorer thresholds. Zero fields take the defaults.
type Config struct {
	HighDenialCount   int
	HighDenialPenalty float64
	LowDenialCount    int
	LowDenialPenalty  float64
	VolumeThreshold   int
	VolumePenalty     float64
}

func (c Config) withDefaults() Config {
	if c.HighDenialCount <= 0 {
		c.HighDenialCount = DefaultHighDenialCount
	}
	if c.HighDenialPenalty <= 0 {
		c.HighDenialPenalty = DefaultHighDenialPenalty
	}
	if c.LowDenialCount <= 0 {
		c.LowDenialCount = DefaultLowDenialCount
	}
	if c.LowDenialPenalty <= 0 {
		c.LowDenialPenalty = DefaultLowDenialPenalty
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = DefaultVolumeThreshold
	}
	if c.VolumePenalty <= 0 {
		c.VolumePenalty = DefaultVolumePenalty
	}
	return c
}

// Scorer combines the injection score with session history.
type Scorer struct {
	cfg      Config
	detector *guardian.InjectionDetector
}

func NewScorer(detector *guardian.InjectionDetector, cfg Config) *Scorer {
	return &Scorer{cfg: cfg.withDefaults(), detector: detector}
}

// Score returns the advisory risk for text given the caller's counters. It
// uses the detector's pure evaluation, so no audit event is emitted.
func (s *Scorer) Score(text string, c SessionCounters) float64 {
	return s.Combine(s.detector.Evaluate(text).Score, c)
}

// Combine adds the session penalties to an already computed injection score.
func (s *Scorer) Combine(injection float64, c SessionCounters) float64 {
	score := injection
	switch {
	case c.DenialCount >= s.cfg.HighDenialCount:
		score += s.cfg.HighDenialPenalty
	case c.DenialCount >= s.cfg.LowDenialCount:
		score += s.cfg.LowDenialPenalty
	}
	if c.SessionRequests > s.cfg.VolumeThreshold {
		score += s.cfg.VolumePenalty
	}
	return clamp(math.Round(score*1000) / 1000)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
