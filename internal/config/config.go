package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".talentguard"
	DefaultConfigFile = "config.yaml"
	DefaultLogFile    = "audit.jsonl"
	DefaultPacksDir   = "packs"
)

// Environment overrides. Flags win over the environment, which wins over the file.
const (
	EnvConfig = "TALENTGUARD_CONFIG"
	EnvLog    = "TALENTGUARD_LOG"
	EnvPacks  = "TALENTGUARD_PACKS"
)

// Audit sink kinds.
const (
	SinkJSONL = "jsonl"
	SinkZap   = "zap"
	SinkBoth  = "both"
)

type Config struct {
	ConfigDir  string          `yaml:"-"`
	ConfigPath string          `yaml:"-"`
	Limits     LimitsConfig    `yaml:"limits"`
	Injection  InjectionConfig `yaml:"injection"`
	Risk       RiskConfig      `yaml:"risk"`
	Identity   IdentityConfig  `yaml:"identity"`
	Audit      AuditConfig     `yaml:"audit"`
	Patterns   PatternsConfig  `yaml:"patterns"`
}

type LimitsConfig struct {
	MaxInputLength   int `yaml:"max_input_length"`
	MaxOutputRecords int `yaml:"max_output_records"`
}

// InjectionConfig controls prompt-injection scoring. FlagThreshold marks a
// request as suspicious; BlockThreshold denies it.
type InjectionConfig struct {
	PatternWeight  float64 `yaml:"pattern_weight"`
	BulkVerbBoost  float64 `yaml:"bulk_verb_boost"`
	TotalityBoost  float64 `yaml:"totality_boost"`
	FlagThreshold  float64 `yaml:"flag_threshold"`
	BlockThreshold float64 `yaml:"block_threshold"`
}

type RiskConfig struct {
	HighDenialCount   int     `yaml:"high_denial_count"`
	HighDenialPenalty float64 `yaml:"high_denial_penalty"`
	LowDenialCount    int     `yaml:"low_denial_count"`
	LowDenialPenalty  float64 `yaml:"low_denial_penalty"`
	VolumeThreshold   int     `yaml:"volume_threshold"`
	VolumePenalty     float64 `yaml:"volume_penalty"`
}

type IdentityConfig struct {
	MinUserIDLength int `yaml:"min_user_id_length"`
}

type AuditConfig struct {
	Path      string `yaml:"path"`
	QueueSize int    `yaml:"queue_size"`

	// Sink is one of jsonl, zap or both.
	Sink string `yaml:"sink"`
}

type PatternsConfig struct {
	PacksDir string `yaml:"packs_dir"`
}

// Default returns the built-in configuration without touching the filesystem.
// Paths are left empty; Load fills them relative to the config directory.
func Default() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxInputLength:   500,
			MaxOutputRecords: 10,
		},
		Injection: InjectionConfig{
			PatternWeight:  0.3,
			BulkVerbBoost:  0.1,
			TotalityBoost:  0.1,
			FlagThreshold:  0.3,
			BlockThreshold: 0.5,
		},
		Risk: RiskConfig{
			HighDenialCount:   3,
			HighDenialPenalty: 0.3,
			LowDenialCount:    1,
			LowDenialPenalty:  0.1,
			VolumeThreshold:   50,
			VolumePenalty:     0.2,
		},
		Identity: IdentityConfig{MinUserIDLength: 10},
		Audit:    AuditConfig{QueueSize: 1024, Sink: SinkJSONL},
	}
}

// Overrides are values supplied on the command line. Empty fields are ignored.
type Overrides struct {
	ConfigPath string
	LogPath    string
	PacksDir   string
}

// Load resolves the config directory (~/.talentguard), reads the config file
// if present and applies environment and flag overrides. A missing config
// file yields the defaults.
func Load(o Overrides) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	path := firstNonEmpty(o.ConfigPath, os.Getenv(EnvConfig), filepath.Join(configDir, DefaultConfigFile))
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ConfigDir = configDir

	cfg.Audit.Path = firstNonEmpty(o.LogPath, os.Getenv(EnvLog), cfg.Audit.Path, filepath.Join(configDir, DefaultLogFile))
	cfg.Patterns.PacksDir = firstNonEmpty(o.PacksDir, os.Getenv(EnvPacks), cfg.Patterns.PacksDir, filepath.Join(configDir, DefaultPacksDir))

	return cfg, nil
}

// LoadFile reads a YAML config file on top of the defaults. Zero values in
// the file keep the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.ConfigPath = path
			return cfg, nil
		}
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.ConfigPath = path
	return cfg, nil
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	setInt(&c.Limits.MaxInputLength, d.Limits.MaxInputLength)
	setInt(&c.Limits.MaxOutputRecords, d.Limits.MaxOutputRecords)

	setFloat(&c.Injection.PatternWeight, d.Injection.PatternWeight)
	setFloat(&c.Injection.BulkVerbBoost, d.Injection.BulkVerbBoost)
	setFloat(&c.Injection.TotalityBoost, d.Injection.TotalityBoost)
	setFloat(&c.Injection.FlagThreshold, d.Injection.FlagThreshold)
	setFloat(&c.Injection.BlockThreshold, d.Injection.BlockThreshold)

	setInt(&c.Risk.HighDenialCount, d.Risk.HighDenialCount)
	setFloat(&c.Risk.HighDenialPenalty, d.Risk.HighDenialPenalty)
	setInt(&c.Risk.LowDenialCount, d.Risk.LowDenialCount)
	setFloat(&c.Risk.LowDenialPenalty, d.Risk.LowDenialPenalty)
	setInt(&c.Risk.VolumeThreshold, d.Risk.VolumeThreshold)
	setFloat(&c.Risk.VolumePenalty, d.Risk.VolumePenalty)

	setInt(&c.Identity.MinUserIDLength, d.Identity.MinUserIDLength)
	setInt(&c.Audit.QueueSize, d.Audit.QueueSize)
	if c.Audit.Sink == "" {
		c.Audit.Sink = d.Audit.Sink
	}
}

// ErrInvalidConfig is wrapped by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Validate rejects negative sizes, thresholds outside [0,1] and a flag
// threshold above the block threshold.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.Limits.MaxInputLength > 0, "limits.max_input_length must be positive, got %d", c.Limits.MaxInputLength)
	check(c.Limits.MaxOutputRecords > 0, "limits.max_output_records must be positive, got %d", c.Limits.MaxOutputRecords)
	check(unit(c.Injection.FlagThreshold), "injection.flag_threshold must be in [0,1], got %v", c.Injection.FlagThreshold)
	check(unit(c.Injection.BlockThreshold), "injection.block_threshold must be in [0,1], got %v", c.Injection.BlockThreshold)
	check(c.Injection.FlagThreshold <= c.Injection.BlockThreshold,
		"injection.flag_threshold (%v) must not exceed block_threshold (%v)", c.Injection.FlagThreshold, c.Injection.BlockThreshold)
	check(c.Risk.LowDenialCount <= c.Risk.HighDenialCount,
		"risk.low_denial_count (%d) must not exceed high_denial_count (%d)", c.Risk.LowDenialCount, c.Risk.HighDenialCount)
	check(c.Identity.MinUserIDLength > 0, "identity.min_user_id_length must be positive, got %d", c.Identity.MinUserIDLength)
	check(c.Audit.QueueSize > 0, "audit.queue_size must be positive, got %d", c.Audit.QueueSize)
	switch c.Audit.Sink {
	case SinkJSONL, SinkZap, SinkBoth:
	default:
		check(false, "audit.sink must be jsonl, zap or both, got %q", c.Audit.Sink)
	}

	return errors.Join(errs...)
}

func unit(v float64) bool { return v >= 0 && v <= 1 }

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setFloat(dst *float64, def float64) {
	if *dst == 0 {
		*dst = def
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
