package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/engine"
	"github.com/roach88/linkcast/internal/ir"
)

// ItemAddOptions holds options for the item add command.
type ItemAddOptions struct {
	*RootOptions
	Type   string
	Status string
	Parent int64
}

// NewItemCommand creates the item command group.
func NewItemCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage items on a node",
	}
	cmd.AddCommand(newItemAddCommand(rootOpts))
	cmd.AddCommand(newItemListCommand(rootOpts))
	for _, c := range ir.Commands {
		cmd.AddCommand(newItemLifecycleCommand(rootOpts, c))
	}
	return cmd
}

func newItemAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ItemAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <node> <name>",
		Short: "Create an item on a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItemAdd(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "post", "item type")
	cmd.Flags().StringVar(&opts.Status, "status", "publish", "item status")
	cmd.Flags().Int64Var(&opts.Parent, "parent", 0, "hierarchical parent item on the same node")

	return cmd
}

func runItemAdd(opts *ItemAddOptions, cmd *cobra.Command, args []string) error {
	node, err := ir.ParseNodeID(args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	if opts.Parent < 0 {
		return NewExitError(ExitCommandError, "--parent must not be negative")
	}

	s, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := content.WithNode(cmd.Context(), node)
	out := newFormatter(cmd, opts.RootOptions)
	item := ir.Item{Name: args[1], Type: opts.Type, Status: opts.Status, Parent: ir.ItemID(opts.Parent)}
	id, err := s.items.Create(ctx, node, item)
	if err != nil {
		return out.Fail("failed to create item", err, nil)
	}
	created, err := s.items.Fetch(ctx, ir.ItemRef{Node: node, Item: id})
	if err != nil {
		return out.Fail("failed to read created item", err, nil)
	}
	return out.Success(itemList{created})
}

func newItemListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <node>",
		Short: "List items on a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := ir.ParseNodeID(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid arguments", err)
			}

			s, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			out := newFormatter(cmd, rootOpts)
			items, err := s.store.ListItems(content.WithNode(cmd.Context(), node), node)
			if err != nil {
				return out.Fail("failed to list items", err, nil)
			}
			return out.Success(itemList(items))
		},
	}
}

// newItemLifecycleCommand runs a lifecycle command on one item and cascades
// it to every linked copy.
func newItemLifecycleCommand(rootOpts *RootOptions, c ir.Command) *cobra.Command {
	use := string(c)
	if c == ir.CommandUntrash {
		use = "restore"
	}
	return &cobra.Command{
		Use:   use + " <node> <item>",
		Short: fmt.Sprintf("Run %s on an item and its linked copies", c),
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

			return runCascade(cmd, rootOpts, func(ctx context.Context) (*engine.CascadeReport, error) {
				return s.engine.Apply(ctx, c, ref)
			})
		},
	}
}

// runCascade prints a cascade report and maps partial failure to exit 1.
func runCascade(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context) (*engine.CascadeReport, error)) error {
	out := newFormatter(cmd, opts)
	report, err := fn(cmd.Context())
	if err != nil {
		return out.Fail("cascade failed", err, report)
	}
	if perr := report.Err(); perr != nil {
		_ = out.Success(cascadeView{report})
		return WrapExitError(ExitFailure, "cascade incomplete", perr)
	}
	return out.Success(cascadeView{report})
}

type itemList []ir.Item

func (l itemList) Text(s Styles) string {
	if len(l) == 0 {
		return s.Muted.Render("no items")
	}
	var b strings.Builder
	for i, it := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s  %s/%s", s.Ref.Render(it.Ref.String()), it.Name, it.Type, it.Status)
		if it.Parent != 0 {
			fmt.Fprintf(&b, "  %s", s.Muted.Render(fmt.Sprintf("parent=%d", it.Parent)))
		}
	}
	return b.String()
}

type cascadeView struct {
	*engine.CascadeReport
}

func (v cascadeView) Text(s Styles) string {
	r := v.CascadeReport
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", s.Header.Render(string(r.Command)), s.Ref.Render(r.Origin.String()))
	if r.Rejected {
		fmt.Fprintf(&b, "  %s", s.Outcome("skipped"))
		return b.String()
	}
	for _, ref := range r.Processed {
		fmt.Fprintf(&b, "\n  %s  %s", s.Ref.Render(ref.String()), s.Outcome("ok"))
	}
	for _, ref := range r.Skipped {
		fmt.Fprintf(&b, "\n  %s  %s", s.Ref.Render(ref.String()), s.Outcome("skipped"))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\n  %s  %s  %v", s.Ref.Render(f.Child.String()), s.Outcome("failed"), f.Err)
	}
	if r.DetachedFrom != nil {
		fmt.Fprintf(&b, "\n  %s", s.Muted.Render("detached from "+r.DetachedFrom.String()))
	}
	return b.String()
}
