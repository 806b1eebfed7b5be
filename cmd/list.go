package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/ouvrt-cameras/internal/events"
	"github.com/smazurov/ouvrt-cameras/internal/session"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the cameras without opening any window",
		Long: `Runs device discovery only and prints one line per camera: its display ` +
			`name and first capability. Exits 1 when no camera is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bus := events.New()
			defer func() { _ = bus.Close() }()

			opts := a.sessionOptions(bus)
			opts.Stdout = io.Discard

			sources, err := session.Discover(cmd.Context(), opts)
			if err != nil {
				a.code = session.ExitSetup
				return nil
			}
			for _, src := range sources {
				caps := ""
				if len(src.Capabilities) > 0 {
					caps = src.Capabilities[0].String()
				}
				fmt.Fprintf(a.stdout, "%s\t%s\n", src.DisplayName, caps)
			}
			a.code = session.ExitOK
			return nil
		},
	}
}
