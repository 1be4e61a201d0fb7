package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions <name[,range]>",
	Short: "List the available versions of an addon",
	Long: `List the versions of an addon held by the repository, ascending.

The range is either a single version or a range expression such as "[1.0,2.0)".
Without a range every version is listed.`,
	Example: `  kiln versions org.example:my-addon
  kiln versions 'org.example:my-addon,[1.0,2.0)'`,
	Args: cobra.ExactArgs(1),
	RunE: runVersions,
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}

func runVersions(cmd *cobra.Command, args []string) error {
	res, err := newResolver()
	if err != nil {
		return err
	}
	ids, err := res.ResolveQuery(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No matching versions.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id.String())
	}
	return nil
}
