package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var sanitizeFile string

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize",
	Short: "Strip sensitive fields from a JSON response and cap list length",
	Long: `Read a JSON document (a record, a list of records, or any nesting of them)
and print it with every sensitive field removed and every list capped at the
configured maximum number of records.

Examples:
  talentguard sanitize --file roster.json
  curl -s http://wfm.internal/api/roster | talentguard sanitize`,
	RunE: sanitizeCommand,
}

func init() {
	sanitizeCmd.Flags().StringVarP(&sanitizeFile, "file", "f", "", "JSON file to sanitize (default: stdin)")
	rootCmd.AddCommand(sanitizeCmd)
}

func sanitizeCommand(cmd *cobra.Command, args []string) error {
	raw, err := readInput(sanitizeFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("input is not valid JSON: %w", err)
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	clean := rt.pipeline.SanitizeOutput(data)
	rt.shutdown(cmd.ErrOrStderr())

	return writeJSON(cmd.OutOrStdout(), clean)
}
