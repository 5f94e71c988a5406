package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/gzhole/talentguard/internal/identity"
	"github.com/gzhole/talentguard/internal/pipeline"
	"github.com/gzhole/talentguard/internal/policy"
	"github.com/gzhole/talentguard/internal/risk"
)

const auditCloseTimeout = 5 * time.Second

var (
	checkQuery    string
	checkUser     string
	checkRole     string
	checkTeam     string
	checkIntent   string
	checkResource string
	checkStdin    bool
	checkDenials  int
	checkRequests int
	checkMetrics  bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate one chatbot request through the guardrail pipeline",
	Long: `Run a request through identity, clarification, input validation, injection
scoring, topic scoping and (when --intent is given) authorization. The outcome
is printed as JSON and the decision is written to the audit log.

Examples:
  talentguard check --user emp_001234 --role employee --team team_a --query "how many leave days do I have left"
  talentguard check --user mgr_000777 --role manager --team team_a \
      --intent approve_leave --resource '{"team_id":"team_a","employee_id":"emp_001234"}' \
      --query "approve leave for emp_001234"
  echo '{"query":"hi","user_id":"emp_001234","role":"employee","team_id":"t1"}' | talentguard check --stdin`,
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().StringVarP(&checkQuery, "query", "q", "", "User query text")
	checkCmd.Flags().StringVar(&checkUser, "user", "", "Caller user id")
	checkCmd.Flags().StringVar(&checkRole, "role", "", "Caller role ("+roleNames()+")")
	checkCmd.Flags().StringVar(&checkTeam, "team", "", "Caller team id")
	checkCmd.Flags().StringVar(&checkIntent, "intent", "", "Resolved intent to authorize")
	checkCmd.Flags().StringVar(&checkResource, "resource", "", "Target resource as a JSON object")
	checkCmd.Flags().BoolVar(&checkStdin, "stdin", false, "Read the request as JSON from stdin")
	checkCmd.Flags().IntVar(&checkDenials, "denials", 0, "Denials so far in this session")
	checkCmd.Flags().IntVar(&checkRequests, "requests", 0, "Requests so far in this session")
	checkCmd.Flags().BoolVar(&checkMetrics, "metrics", false, "Print Prometheus metrics after the outcome")
	rootCmd.AddCommand(checkCmd)
}

func roleNames() string {
	names := make([]string, len(identity.Roles))
	for i, r := range identity.Roles {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}

func checkCommand(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(cmd.InOrStdin())
	if err != nil {
		return err
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	out := rt.pipeline.Evaluate(req, risk.SessionCounters{
		DenialCount:     checkDenials,
		SessionRequests: checkRequests,
	})
	rt.shutdown(cmd.ErrOrStderr())

	if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if checkMetrics {
		return writeMetrics(cmd.OutOrStdout(), rt.registry)
	}
	return nil
}

func buildRequest(stdin io.Reader) (pipeline.Request, error) {
	var req pipeline.Request
	if checkStdin {
		if err := json.NewDecoder(stdin).Decode(&req); err != nil {
			return req, fmt.Errorf("failed to parse request from stdin: %w", err)
		}
		return req, nil
	}

	req = pipeline.Request{
		Query:  checkQuery,
		UserID: checkUser,
		Role:   checkRole,
		TeamID: checkTeam,
		Intent: checkIntent,
	}
	if checkResource != "" {
		var res policy.Resource
		if err := json.Unmarshal([]byte(checkResource), &res); err != nil {
			return req, fmt.Errorf("invalid --resource JSON: %w", err)
		}
		req.Resource = res
	}
	return req, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	fmt.Fprintln(w)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// readInput returns the named file, or stdin when path is empty. An
// interactive terminal is refused so the command never hangs waiting.
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	if f, ok := stdin.(*os.File); ok && isTerminal(f) {
		return nil, fmt.Errorf("no input: pass --file or pipe JSON on stdin")
	}
	return io.ReadAll(stdin)
}
