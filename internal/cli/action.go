package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/engine"
	"github.com/roach88/linkcast/internal/ir"
)

// ActionOptions holds options for the action command.
type ActionOptions struct {
	*RootOptions
	Items string
	Nodes string
}

// NewActionCommand creates the action command.
func NewActionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "action <delete|trash|restore|unlink|find_unlinked> <node>",
		Short: "Run an operator action on the linked copies of one or more items",
		Long: `Run an operator action against the children of each listed item.
delete, trash and restore act on the selected children and cascade below
them; unlink removes them from the link; find_unlinked scans for matches.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Items, "items", "", "comma separated item ids on <node> (required)")
	cmd.Flags().StringVar(&opts.Nodes, "nodes", "", "comma separated child nodes to act on (default: all)")
	_ = cmd.MarkFlagRequired("items")

	return cmd
}

func runAction(opts *ActionOptions, cmd *cobra.Command, args []string) error {
	kind, err := ir.ParseActionKind(args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	node, err := ir.ParseNodeID(args[1])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	items, err := ir.ParseItemList(opts.Items)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --items", err)
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
	reports, err := s.engine.Dispatcher().HandleBulk(cmd.Context(), kind, node, items, nodes)
	if perr := out.Success(actionView(reports)); perr != nil {
		return perr
	}
	if err != nil {
		_, code := classify(err)
		return WrapExitError(code, "action incomplete", err)
	}
	for _, r := range reports {
		if rerr := r.Err(); rerr != nil {
			return WrapExitError(ExitFailure, "action incomplete", rerr)
		}
	}
	return nil
}

type actionView []*engine.ActionReport

func (v actionView) Text(s Styles) string {
	if len(v) == 0 {
		return s.Muted.Render("nothing to do")
	}
	var b strings.Builder
	for i, r := range v {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s", s.Header.Render(string(r.Action.Kind)), s.Ref.Render(r.Action.Origin.String()))
		if len(r.Results) == 0 {
			fmt.Fprintf(&b, "\n  %s", s.Muted.Render("no linked copies"))
		}
		for _, res := range r.Results {
			fmt.Fprintf(&b, "\n  node %d  %s", res.Node, s.Outcome(res.Outcome))
			if res.Item != 0 {
				fmt.Fprintf(&b, "  %s", s.Ref.Render(ir.ItemRef{Node: res.Node, Item: res.Item}.String()))
			}
			if res.Error != "" {
				fmt.Fprintf(&b, "  %s", res.Error)
			}
		}
		if r.Action.Kind == ir.ActionFindUnlinked {
			fmt.Fprintf(&b, "\n  %d adopted", r.Adopted)
		}
	}
	return b.String()
}
