package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/output"
	"github.com/Aman-CERP/gpsearch/internal/source"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <doctype> <name>",
		Short: "Remove one record from the index",
		Long: `Delete the indexed document of a single record, for example after the
record was deleted on the site.`,
		Example: `  gpsearch remove "GP Discussion" DISC-0001
  gpsearch remove "GP Task" TASK-0042`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doctype, name := args[0], strings.TrimSpace(args[1])
			if _, ok := source.LookupDoctype(doctype); !ok {
				return gperrors.ValidationError("unknown doctype: "+doctype, nil).
					WithSuggestion("Use one of: " + strings.Join(doctypeNames(), ", "))
			}
			if name == "" {
				return gperrors.ValidationError("record name is required", nil)
			}

			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.indexer.RemoveRecord(cmd.Context(), doctype, name); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Removed %s %s", doctype, name)
			return nil
		},
	}
}

// doctypeNames lists the indexed doctypes.
func doctypeNames() []string {
	names := make([]string, len(source.Doctypes))
	for i, d := range source.Doctypes {
		names[i] = d.Name
	}
	return names
}
