package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/ir"
)

// LinkShowOptions holds options for the link show command.
type LinkShowOptions struct {
	*RootOptions
	Prune bool
}

// NewLinkCommand creates the link command group.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Inspect links",
	}
	cmd.AddCommand(newLinkShowCommand(rootOpts))
	return cmd
}

func newLinkShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LinkShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <node> <item>",
		Short: "Show where an item was linked from and its linked copies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinkShow(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "drop children on nodes that no longer exist")

	return cmd
}

func runLinkShow(opts *LinkShowOptions, cmd *cobra.Command, args []string) error {
	ref, err := parseRefArgs(args[0], args[1])
	if err != nil {
		return err
	}

	s, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := newFormatter(cmd, opts.RootOptions)

	view := linkOverview{Ref: ref, MaxChildren: opts.Config.Overview.MaxChildren}
	if opts.Prune {
		pruned, err := s.engine.Prune(ctx, ref)
		if err != nil {
			return out.Fail("failed to prune link", err, nil)
		}
		view.Pruned = pruned
	}

	link, err := s.engine.GetLink(ctx, ref)
	if err != nil {
		return out.Fail("failed to read link", err, nil)
	}
	view.Parent = link.Parent
	view.Children = link.ChildRefs()
	return out.Success(view)
}

// linkOverview is what link show reports for one item.
type linkOverview struct {
	Ref      ir.ItemRef   `json:"ref"`
	Parent   *ir.ItemRef  `json:"parent,omitempty"`
	Children []ir.ItemRef `json:"children"`
	Pruned   []ir.ItemRef `json:"pruned,omitempty"`

	MaxChildren int `json:"-"`
}

func (v linkOverview) Text(s Styles) string {
	var b strings.Builder
	b.WriteString(s.Header.Render(v.Ref.String()))
	if v.Parent != nil {
		fmt.Fprintf(&b, "\n  linked from %s", s.Ref.Render(v.Parent.String()))
	}
	switch {
	case len(v.Children) == 0:
		fmt.Fprintf(&b, "\n  %s", s.Muted.Render("no linked copies"))
	case v.MaxChildren > 0 && len(v.Children) > v.MaxChildren:
		fmt.Fprintf(&b, "\n  linked to %d nodes", len(v.Children))
	default:
		for _, c := range v.Children {
			fmt.Fprintf(&b, "\n  -> %s", s.Ref.Render(c.String()))
		}
	}
	for _, p := range v.Pruned {
		fmt.Fprintf(&b, "\n  %s", s.Muted.Render("pruned "+p.String()))
	}
	return b.String()
}
