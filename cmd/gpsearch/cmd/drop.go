package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gpsearch/internal/output"
)

func newDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop the search index and its documents",
		Long: `Delete the search index together with every document stored under
its prefix. Dropping an index that does not exist succeeds.

Run 'gpsearch reindex' afterwards to rebuild it from the site database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := output.New(cmd.OutOrStdout())
			if a.index().Degraded() {
				out.Warning("Search module not available, nothing to drop")
				return nil
			}
			if err := a.index().Drop(cmd.Context()); err != nil {
				return err
			}
			out.Successf("Index %s dropped", a.index().Name())
			return nil
		},
	}
}
