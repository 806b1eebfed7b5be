package cmd

import (
	"github.com/spf13/cobra"

	"github.com/smazurov/ouvrt-cameras/internal/version"
)

func (a *app) versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if short {
				_, err := cmd.OutOrStdout().Write([]byte(info.String() + "\n"))
				return err
			}
			return info.Write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version line")
	return cmd
}
