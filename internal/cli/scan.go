package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/engine"
	"github.com/roach88/linkcast/internal/ir"
)

// FindUnlinkedOptions holds options for the find-unlinked command.
type FindUnlinkedOptions struct {
	*RootOptions
	Nodes string
}

// NewFindUnlinkedCommand creates the find-unlinked command.
func NewFindUnlinkedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindUnlinkedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find-unlinked <node> <item>",
		Short: "Link existing matching items on other nodes as children",
		Long: `Look on other nodes for an item with the same name, type and status and
link it when exactly one unlinked candidate exists. If the item is itself a
linked child, the scan runs from its parent.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFindUnlinked(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Nodes, "nodes", "", "comma separated nodes to scan (default: every node)")

	return cmd
}

func runFindUnlinked(opts *FindUnlinkedOptions, cmd *cobra.Command, args []string) error {
	ref, err := parseRefArgs(args[0], args[1])
	if err != nil {
		return err
	}
	nodes, err := ir.ParseNodeList(opts.Nodes)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --nodes", err)
	}

	s, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	out := newFormatter(cmd, opts.RootOptions)
	report, err := s.engine.FindUnlinkedChildren(cmd.Context(), ref, nodes)
	if err != nil {
		return out.Fail("scan failed", err, nil)
	}
	if err := out.Success(scanView{report}); err != nil {
		return err
	}
	for _, ns := range report.Nodes {
		if ns.Outcome == engine.ScanFailed {
			return NewExitError(ExitFailure, "scan incomplete")
		}
	}
	return nil
}

type scanView struct {
	*engine.ScanReport
}

func (v scanView) Text(s Styles) string {
	r := v.ScanReport
	var b strings.Builder
	b.WriteString(s.Header.Render("scan " + r.Origin.String()))
	if r.Requested != r.Origin {
		fmt.Fprintf(&b, " %s", s.Muted.Render("(from "+r.Requested.String()+")"))
	}
	if len(r.Nodes) == 0 {
		fmt.Fprintf(&b, "\n  %s", s.Muted.Render("nothing to scan"))
	}
	for _, ns := range r.Nodes {
		fmt.Fprintf(&b, "\n  node %d  %s", ns.Node, s.Outcome(string(ns.Outcome)))
		if ns.Item != 0 {
			fmt.Fprintf(&b, "  %s", s.Ref.Render(ir.ItemRef{Node: ns.Node, Item: ns.Item}.String()))
		}
		if ns.Candidates > 1 {
			fmt.Fprintf(&b, "  %s", s.Muted.Render(fmt.Sprintf("%d candidates", ns.Candidates)))
		}
		if ns.Err != nil {
			fmt.Fprintf(&b, "  %v", ns.Err)
		}
	}
	fmt.Fprintf(&b, "\n%d adopted", r.Adopted())
	return b.String()
}
