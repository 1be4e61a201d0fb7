package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bayleafwalker/kiln/internal/addons"
	"github.com/bayleafwalker/kiln/internal/graph"
	"github.com/bayleafwalker/kiln/internal/resolver"
)

var (
	resolveJSON      bool
	resolveResources bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name:version>",
	Short: "Print the dependency graph and install order of an addon",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Output in JSON format")
	resolveCmd.Flags().BoolVar(&resolveResources, "resources", false, "Include the resources of every addon")
	rootCmd.AddCommand(resolveCmd)
}

// resolvedNode is one addon of the JSON output.
type resolvedNode struct {
	ID        string   `json:"id"`
	Required  []string `json:"required,omitempty"`
	Optional  []string `json:"optional,omitempty"`
	Exported  []string `json:"exported,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

type resolveOutput struct {
	Root         string         `json:"root"`
	Addons       []resolvedNode `json:"addons"`
	InstallOrder []string       `json:"installOrder"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	id, err := addons.ParseID(args[0])
	if err != nil {
		return err
	}
	res, err := newResolver()
	if err != nil {
		return err
	}
	info, err := res.ResolveGraph(cmd.Context(), id)
	if err != nil {
		return err
	}

	g := graph.FromInfo(info)
	order, err := g.InstallOrder()
	if err != nil {
		return err
	}
	nodes := make(map[addons.ID]*resolver.Info, len(order))
	_ = info.Walk(func(n *resolver.Info) error {
		nodes[n.ID()] = n
		return nil
	})

	out := resolveOutput{Root: id.String()}
	for _, oid := range order {
		n := nodes[oid]
		node := resolvedNode{
			ID:       oid.String(),
			Required: idStrings(n.RequiredIDs()),
			Optional: idStrings(n.OptionalIDs()),
			Exported: idStrings(g.Exported(oid)),
		}
		if resolveResources {
			if node.Resources, err = n.Resources(); err != nil {
				return fmt.Errorf("resources of %s: %w", oid, err)
			}
		}
		out.Addons = append(out.Addons, node)
		out.InstallOrder = append(out.InstallOrder, oid.String())
	}

	w := cmd.OutOrStdout()
	if resolveJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printTree(w, info)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Install order:")
	for i, s := range out.InstallOrder {
		fmt.Fprintf(w, "  %d. %s\n", i+1, s)
	}
	if resolveResources {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Resources:")
		for _, n := range out.Addons {
			for _, f := range n.Resources {
				fmt.Fprintf(w, "  %s  %s\n", n.ID, f)
			}
		}
	}
	return nil
}

// printTree writes the graph rooted at root, one addon per line. An addon reached a
// second time is marked "(*)" and not expanded again.
func printTree(w io.Writer, root *resolver.Info) {
	expanded := make(map[addons.ID]bool)
	var visit func(n *resolver.Info, depth int, tags []string)
	visit = func(n *resolver.Info, depth int, tags []string) {
		line := strings.Repeat("  ", depth) + n.ID().String()
		if len(tags) > 0 {
			line += " [" + strings.Join(tags, ", ") + "]"
		}
		hasDeps := len(n.Required())+len(n.Optional()) > 0
		if expanded[n.ID()] && hasDeps {
			fmt.Fprintln(w, line+" (*)")
			return
		}
		expanded[n.ID()] = true
		fmt.Fprintln(w, line)
		for _, e := range n.Required() {
			var t []string
			if e.Exported {
				t = append(t, "exported")
			}
			visit(e.Info, depth+1, t)
		}
		for _, e := range n.Optional() {
			visit(e.Info, depth+1, []string{"optional"})
		}
	}
	visit(root, 0, nil)
}

func idStrings(ids []addons.ID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
