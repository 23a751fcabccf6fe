package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/ir"
)

// ResolveOptions holds options for the resolve command.
type ResolveOptions struct {
	*RootOptions
	LookupOnly bool
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <node> <item> <target-node>",
		Short: "Find or create an item's counterpart on another node",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.LookupOnly, "lookup", false, "only report an existing counterpart, never create one")

	return cmd
}

func runResolve(opts *ResolveOptions, cmd *cobra.Command, args []string) error {
	origin, err := parseRefArgs(args[0], args[1])
	if err != nil {
		return err
	}
	target, err := ir.ParseNodeID(args[2])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	s, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := newFormatter(cmd, opts.RootOptions)
	if err := s.requireNode(ctx, target); err != nil {
		return err
	}

	if opts.LookupOnly {
		id, ok, err := s.engine.Lookup(ctx, origin, target)
		if err != nil {
			return out.Fail("lookup failed", err, nil)
		}
		if !ok {
			_ = out.Error(ErrCodeNotFound, fmt.Sprintf("%s has no counterpart on node %d", origin, target), nil)
			return NewExitError(ExitFailure, "no counterpart")
		}
		return out.Success(resolution{Origin: origin, Counterpart: ir.ItemRef{Node: target, Item: id}})
	}

	op := s.engine.Begin(ctx)
	defer op.End()
	id, err := s.engine.ResolveOrCreate(ctx, op, origin, target, s.duplicator())
	if err != nil {
		return out.Fail("resolve failed", err, nil)
	}
	return out.Success(resolution{Origin: origin, Counterpart: ir.ItemRef{Node: target, Item: id}})
}

type resolution struct {
	Origin      ir.ItemRef `json:"origin"`
	Counterpart ir.ItemRef `json:"counterpart"`
}

func (r resolution) Text(s Styles) string {
	return fmt.Sprintf("%s -> %s", s.Ref.Render(r.Origin.String()), s.Ref.Render(r.Counterpart.String()))
}
