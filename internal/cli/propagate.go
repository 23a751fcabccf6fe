package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/engine"
	"github.com/roach88/linkcast/internal/ir"
)

// NewPropagateCommand creates the propagate command.
func NewPropagateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "propagate <delete|trash|untrash> <node> <item>",
		Short: "Cascade a lifecycle command to an item's linked copies",
		Long: `Cascade a lifecycle command to every item linked below the given item,
as if the item's own node had just run it. The item itself is not touched.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ir.ParseCommand(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid arguments", err)
			}
			ref, err := parseRefArgs(args[1], args[2])
			if err != nil {
				return err
			}

			s, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			return runCascade(cmd, rootOpts, func(ctx context.Context) (*engine.CascadeReport, error) {
				return s.engine.Dispatcher().Notify(ctx, engine.Notification{Command: c, Ref: ref})
			})
		},
	}
}
