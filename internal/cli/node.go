package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/ir"
	"github.com/roach88/linkcast/internal/store"
)

// NewNodeCommand creates the node command group.
func NewNodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage nodes",
	}
	cmd.AddCommand(newNodeAddCommand(rootOpts))
	cmd.AddCommand(newNodeListCommand(rootOpts))
	cmd.AddCommand(newNodeRemoveCommand(rootOpts))
	return cmd
}

func newNodeAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> [name]",
		Short: "Register a node (re-adding renames it)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ir.ParseNodeID(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid arguments", err)
			}
			name := fmt.Sprintf("node-%d", id)
			if len(args) == 2 {
				name = args[1]
			}

			s, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			out := newFormatter(cmd, rootOpts)
			if err := s.store.AddNode(cmd.Context(), id, name); err != nil {
				return out.Fail("failed to add node", err, nil)
			}
			return out.Success(nodeList{{ID: id, Name: name}})
		},
	}
}

func newNodeListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			out := newFormatter(cmd, rootOpts)
			nodes, err := s.store.ListNodes(cmd.Context())
			if err != nil {
				return out.Fail("failed to list nodes", err, nil)
			}
			return out.Success(nodeList(nodes))
		},
	}
}

func newNodeRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a node and its items",
		Long: `Remove a node and every item on it. Links on other nodes that still
name items on the removed node are left in place; clean them up with
"link show --prune".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ir.ParseNodeID(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid arguments", err)
			}

			s, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			out := newFormatter(cmd, rootOpts)
			if err := s.store.RemoveNode(cmd.Context(), id); err != nil {
				return out.Fail("failed to remove node", err, nil)
			}
			return out.Success(map[string]any{"removed": id})
		},
	}
}

type nodeList []store.Node

func (l nodeList) Text(s Styles) string {
	if len(l) == 0 {
		return s.Muted.Render("no nodes")
	}
	var b strings.Builder
	for i, n := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s", s.Ref.Render(fmt.Sprintf("%4d", n.ID)), n.Name)
	}
	return b.String()
}
