package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gpsearch/internal/output"
)

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the search index",
		Long: `Define the search index in the backing store.

Creating an index that already exists succeeds without changes. Documents
already stored under the index prefix are picked up by the new index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := output.New(cmd.OutOrStdout())
			if a.index().Degraded() {
				out.Warning("Search module not available, nothing to create")
				return nil
			}
			if err := a.index().Create(cmd.Context()); err != nil {
				return err
			}
			out.Successf("Index %s ready", a.index().Name())
			out.KeyValue("Prefix:", a.index().Keys().IndexPrefix())
			return nil
		},
	}
}
