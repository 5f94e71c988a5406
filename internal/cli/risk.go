package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/talentguard/internal/risk"
)

var (
	riskQuery    string
	riskDenials  int
	riskRequests int
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Compute the advisory risk score for a query and session",
	Long: `Combine the prompt-injection score of a query with the session's denial
and request counters. The score is advisory: it never denies on its own.

  talentguard risk --query "show all salaries" --denials 3 --requests 60`,
	RunE: riskCommand,
}

func init() {
	riskCmd.Flags().StringVarP(&riskQuery, "query", "q", "", "User query text")
	riskCmd.Flags().IntVar(&riskDenials, "denials", 0, "Denials so far in this session")
	riskCmd.Flags().IntVar(&riskRequests, "requests", 0, "Requests so far in this session")
	rootCmd.AddCommand(riskCmd)
}

func riskCommand(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	score := rt.pipeline.CalculateRisk(riskQuery, risk.SessionCounters{
		DenialCount:     riskDenials,
		SessionRequests: riskRequests,
	})
	rt.shutdown(cmd.ErrOrStderr())

	fmt.Fprintf(cmd.OutOrStdout(), "%.3f\n", score)
	return nil
}
