package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bayleafwalker/kiln/internal/addons"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources <name:version>",
	Short: "List the files an addon loads",
	Args:  cobra.ExactArgs(1),
	RunE:  runResources,
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, args []string) error {
	id, err := addons.ParseID(args[0])
	if err != nil {
		return err
	}
	res, err := newResolver()
	if err != nil {
		return err
	}
	files, err := res.ResolveResources(cmd.Context(), id)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return nil
}
