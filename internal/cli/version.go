package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/ir"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine and link schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newFormatter(cmd, rootOpts).Success(versionInfo{
				Engine: ir.EngineVersion,
				Schema: ir.SchemaVersion,
			})
		},
	}
}

type versionInfo struct {
	Engine string `json:"engine"`
	Schema string `json:"schema"`
}

func (v versionInfo) Text(s Styles) string {
	return fmt.Sprintf("linkcast %s (link schema %s)", v.Engine, v.Schema)
}
