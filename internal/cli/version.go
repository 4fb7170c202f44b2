package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/httpdispatch/version"
)

func newVersionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			return opts.printer(cmd).encode(info, func() error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", serviceName, version.Short(), info.GoVersion)
				return err
			})
		},
	}
}
