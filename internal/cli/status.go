package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gzhole/talentguard/internal/patterns"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show TalentGuard status: config, patterns, audit log",
	Long: `Show which configuration file is in effect, the pattern library version
and installed packs, and where the audit log is written.

  talentguard status`,
	RunE: statusCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(out, "  TalentGuard Status")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(out)

	binPath, err := os.Executable()
	if err != nil {
		binPath = "unknown"
	}
	fmt.Fprintf(out, "  Binary:    %s (%s)\n", binPath, Version)
	fmt.Fprintf(out, "  Config:    %s\n", cfg.ConfigDir)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "─── Configuration ─────────────────────────────────────")
	checkFile(out, "Config file", cfg.ConfigPath)
	fmt.Fprintf(out, "  Max input:        %d characters\n", cfg.Limits.MaxInputLength)
	fmt.Fprintf(out, "  Max records:      %d\n", cfg.Limits.MaxOutputRecords)
	fmt.Fprintf(out, "  Injection:        flag %.2f, block %.2f\n", cfg.Injection.FlagThreshold, cfg.Injection.BlockThreshold)
	fmt.Fprintf(out, "  Min user id:      %d\n", cfg.Identity.MinUserIDLength)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "─── Patterns ──────────────────────────────────────────")
	lib, infos, err := patterns.BuildFromDir(cfg.Patterns.PacksDir)
	if err != nil {
		fmt.Fprintf(out, "  \xe2\x9d\x8c Pattern library: %v\n", err)
	} else {
		fmt.Fprintf(out, "  \xe2\x9c\x85 Library %s\n", lib.Version())
		fmt.Fprintf(out, "     %d SQL, %d injection, %d off-topic, %d sensitive fields\n",
			len(lib.SQLInjection()), len(lib.PromptInjection()), len(lib.OffTopic()), len(lib.SensitiveFields()))
	}
	if len(infos) > 0 {
		enabled, broken := 0, 0
		for _, info := range infos {
			switch {
			case info.Err != nil:
				broken++
			case info.Enabled:
				enabled++
			}
		}
		fmt.Fprintf(out, "  \xe2\x9c\x85 Pattern packs: %d installed, %d enabled\n", len(infos), enabled)
		if broken > 0 {
			fmt.Fprintf(out, "  \xe2\x9a\xa0  %d pack(s) failed to parse\n", broken)
		}
	} else {
		fmt.Fprintln(out, "  \xe2\xac\x9a  No pattern packs installed")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "─── Audit Log ─────────────────────────────────────────")
	fmt.Fprintf(out, "  Sink:      %s (queue %d)\n", cfg.Audit.Sink, cfg.Audit.QueueSize)
	checkAuditLog(out, cfg.Audit.Path)
	fmt.Fprintln(out)

	return nil
}

func checkFile(w io.Writer, name, path string) {
	if path == "" {
		fmt.Fprintf(w, "  \xe2\xac\x9a  %s: using built-in defaults\n", name)
		return
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  \xe2\x9c\x85 %s: %s\n", name, path)
	} else {
		fmt.Fprintf(w, "  \xe2\xac\x9a  %s: using built-in defaults (no file at %s)\n", name, path)
	}
}

func checkAuditLog(w io.Writer, path string) {
	if path == "" {
		fmt.Fprintln(w, "  \xe2\xac\x9a  No audit log path configured")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "  \xe2\xac\x9a  %s (not yet created, starts on first event)\n", path)
		return
	}

	sizeKB := info.Size() / 1024
	if sizeKB == 0 {
		fmt.Fprintf(w, "  \xe2\x9c\x85 %s (<1 KB)\n", path)
	} else {
		fmt.Fprintf(w, "  \xe2\x9c\x85 %s (%d KB)\n", path, sizeKB)
	}
}
