package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/talentguard/internal/config"
	"github.com/gzhole/talentguard/internal/patterns"
)

var (
	configPath string
	logPath    string
	packsPath  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "talentguard",
	Short: "TalentGuard - request guardrails for a workforce-management chatbot",
	Long: `TalentGuard decides, deterministically and auditably, whether a chatbot
request may proceed: fail-closed identity checks, input validation, prompt
injection scoring, topic scoping, role and ownership authorization, output
redaction and risk scoring. Every decision is written to an audit log.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file (default: ~/.talentguard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to audit log file (default: ~/.talentguard/audit.jsonl)")
	rootCmd.PersistentFlags().StringVar(&packsPath, "packs", "", "Pattern packs directory (default: ~/.talentguard/packs)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write operational logs to stderr")
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Overrides{ConfigPath: configPath, LogPath: logPath, PacksDir: packsPath})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadLibrary builds the pattern library from the built-in sets and the
// enabled packs in cfg.Patterns.PacksDir.
func loadLibrary(cfg *config.Config) (*patterns.Library, []patterns.PackInfo, error) {
	lib, infos, err := patterns.BuildFromDir(cfg.Patterns.PacksDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load patterns: %w", err)
	}
	return lib, infos, nil
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
