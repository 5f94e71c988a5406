package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/talentguard/internal/logger"
)

var (
	logFilterDecision string
	logFilterType     string
	logLast           int
	logSummary        bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit log",
	Long: `View the TalentGuard audit log with filtering and summary options.

Examples:
  talentguard log                              # Show all entries
  talentguard log --last 20                    # Show last 20 entries
  talentguard log --decision denied            # Show only denied requests
  talentguard log --type prompt_injection_detected
  talentguard log --summary                    # Show summary stats`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterDecision, "decision", "", "Filter request records by decision (allowed, denied, clarify)")
	logCmd.Flags().StringVar(&logFilterType, "type", "", "Filter by event type")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	events, err := logger.ReadFile(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events, logFilterDecision, logFilterType)

	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(out, events)
		return nil
	}

	printEvents(out, filtered)
	return nil
}

func filterEvents(events []logger.Event, decision, eventType string) []logger.Event {
	if decision == "" && eventType == "" {
		return events
	}

	var filtered []logger.Event
	for _, e := range events {
		if eventType != "" && !strings.EqualFold(e.Type, eventType) {
			continue
		}
		if decision != "" && (e.Request == nil || !strings.EqualFold(e.Request.Decision, decision)) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(w io.Writer, events []logger.Event) {
	for _, e := range events {
		ts := formatTimestamp(e.Timestamp)
		if r := e.Request; r != nil {
			fmt.Fprintf(w, "%s %s request %s role=%s intent=%s risk=%.2f\n",
				decisionIcon(r.Decision), ts, r.UserID, r.Role, r.Intent, r.RiskScore)
			if r.TargetResource != "" {
				fmt.Fprintf(w, "     Resource: %s\n", r.TargetResource)
			}
			if r.RequestID != "" {
				fmt.Fprintf(w, "     Request: %s\n", r.RequestID)
			}
		} else {
			fmt.Fprintf(w, "%s %s %s\n", eventIcon(e.Type), ts, e.Type)
			for _, k := range sortedKeys(e.Details) {
				fmt.Fprintf(w, "     %s: %v\n", k, e.Details[k])
			}
		}
		fmt.Fprintln(w)
	}
}

func printSummary(w io.Writer, all []logger.Event) {
	decisions := map[string]int{}
	types := map[string]int{}
	requests := 0

	for _, e := range all {
		if e.Request != nil {
			requests++
			decisions[e.Request.Decision]++
			continue
		}
		types[e.Type]++
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintln(w, "  TalentGuard Audit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintf(w, "  Total events:    %d\n", len(all))
	fmt.Fprintf(w, "  Requests:        %d\n", requests)
	fmt.Fprintf(w, "    allowed:       %d\n", decisions[logger.DecisionAllowed])
	fmt.Fprintf(w, "    denied:        %d\n", decisions[logger.DecisionDenied])
	fmt.Fprintf(w, "    clarify:       %d\n", decisions[logger.DecisionClarify])
	fmt.Fprintln(w, "═══════════════════════════════════════════")

	fmt.Fprintf(w, "  First event:     %s\n", formatTimestamp(all[0].Timestamp))
	fmt.Fprintf(w, "  Last event:      %s\n", formatTimestamp(all[len(all)-1].Timestamp))

	if len(types) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Security events:")
		for _, t := range sortedCountKeys(types) {
			fmt.Fprintf(w, "    %-28s %d\n", t, types[t])
		}
	}

	fmt.Fprintln(w)
}

func decisionIcon(decision string) string {
	switch decision {
	case logger.DecisionDenied:
		return "\xf0\x9f\x9b\x91" // shield
	case logger.DecisionClarify:
		return "\xe2\x9d\x93" // question mark
	case logger.DecisionAllowed:
		return "\xe2\x9c\x85" // check mark
	default:
		return "\xe2\x9d\x94"
	}
}

func eventIcon(eventType string) string {
	switch eventType {
	case logger.EventSQLInjection, logger.EventPromptInjection, logger.EventFailClosed:
		return "\xf0\x9f\x9a\xa8" // siren
	case logger.EventClarificationAsked:
		return "\xe2\x9d\x93"
	default:
		return "\xf0\x9f\x94\x8d" // magnifying glass
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedCountKeys orders by descending count, then name.
func sortedCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
