package cli

import (
	"github.com/spf13/cobra"
)

var (
	clarifyQuery string
	clarifyRole  string
)

var clarifyCmd = &cobra.Command{
	Use:   "clarify",
	Short: "Check whether a query is too ambiguous to act on",
	Long: `Report whether the query needs a follow-up question before it can be
answered for the given role, and print the question if so.

  talentguard clarify --role manager --query "show me the team"`,
	RunE: clarifyCommand,
}

func init() {
	clarifyCmd.Flags().StringVarP(&clarifyQuery, "query", "q", "", "User query text")
	clarifyCmd.Flags().StringVar(&clarifyRole, "role", "", "Caller role")
	rootCmd.AddCommand(clarifyCmd)
}

func clarifyCommand(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	c := rt.pipeline.NeedsClarification(clarifyQuery, clarifyRole)
	rt.shutdown(cmd.ErrOrStderr())

	return writeJSON(cmd.OutOrStdout(), c)
}
