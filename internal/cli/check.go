package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/engine"
	"github.com/roach88/linkcast/internal/ir"
)

// NewCheckCommand creates the check command group.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Inspect link consistency",
	}
	cmd.AddCommand(newCheckItemCommand(rootOpts))
	cmd.AddCommand(newCheckForestCommand(rootOpts))
	return cmd
}

func newCheckItemCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "item <node> <item>",
		Short: "Show an item with its link, hierarchical children and referrers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefArgs(args[0], args[1])
			if err != nil {
				return err
			}

			s, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := content.WithNode(cmd.Context(), ref.Node)
			out := newFormatter(cmd, rootOpts)

			var d itemDetail
			if d.Item, err = s.store.Fetch(ctx, ref); err != nil {
				return out.Fail("failed to read item", err, nil)
			}
			if d.Link, err = s.engine.GetLink(ctx, ref); err != nil {
				return out.Fail("failed to read link", err, nil)
			}
			if d.Children, err = s.store.HierarchicalChildren(ctx, ref); err != nil {
				return out.Fail("failed to read children", err, nil)
			}
			if d.ListedBy, err = s.store.ListedBy(ctx, ref); err != nil {
				return out.Fail("failed to read referrers", err, nil)
			}
			return out.Success(d)
		},
	}
}

func newCheckForestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forest",
		Short: "Verify every stored link (exit 1 on violations)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			out := newFormatter(cmd, rootOpts)
			violations, err := s.engine.Check(cmd.Context())
			if err != nil {
				return out.Fail("check failed", err, nil)
			}
			if len(violations) > 0 {
				_ = out.Error(ErrCodeCheckFailed, fmt.Sprintf("%d link violation(s)", len(violations)), violations)
				if out.Format != "json" {
					_ = out.Success(violationList(violations))
				}
				return NewExitError(ExitFailure, "link violations found")
			}
			return out.Success(violationList(violations))
		},
	}
}

// itemDetail is what check item reports.
type itemDetail struct {
	Item     ir.Item      `json:"item"`
	Link     ir.Link      `json:"link"`
	Children []ir.Item    `json:"children"`
	ListedBy []ir.ItemRef `json:"listed_by"`
}

func (d itemDetail) Text(s Styles) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s/%s",
		s.Header.Render(d.Item.Ref.String()), d.Item.Name, d.Item.Type, d.Item.Status)
	if d.Item.Parent != 0 {
		fmt.Fprintf(&b, "\n  parent item %d", d.Item.Parent)
	}
	if d.Link.Parent != nil {
		fmt.Fprintf(&b, "\n  linked from %s", s.Ref.Render(d.Link.Parent.String()))
	}
	for _, c := range d.Link.ChildRefs() {
		fmt.Fprintf(&b, "\n  -> %s", s.Ref.Render(c.String()))
	}
	for _, c := range d.Children {
		fmt.Fprintf(&b, "\n  child item %s (%s)", s.Ref.Render(c.Ref.String()), c.Name)
	}
	for _, r := range d.ListedBy {
		fmt.Fprintf(&b, "\n  listed by %s", s.Ref.Render(r.String()))
	}
	return b.String()
}

type violationList []engine.Violation

func (l violationList) Text(s Styles) string {
	if len(l) == 0 {
		return s.Success.Render("links consistent")
	}
	var b strings.Builder
	for i, v := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.Error.Render(string(v.Kind)))
		fmt.Fprintf(&b, "  %s  %s", s.Ref.Render(v.Ref.String()), s.Ref.Render(v.Related.String()))
	}
	return b.String()
}
