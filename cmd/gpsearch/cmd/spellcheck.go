package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gpsearch/internal/output"
	"github.com/Aman-CERP/gpsearch/internal/search"
)

func newSpellCheckCmd() *cobra.Command {
	var (
		distance   int
		include    []string
		exclude    []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "spellcheck <query>",
		Short: "Suggest corrections for misspelled query terms",
		Long: `Check every term of a query against the index dictionary and list
known terms within the given edit distance.`,
		Example: `  gpsearch spellcheck lanch plan
  gpsearch spellcheck onbaording --distance 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if distance == 0 {
				distance = a.cfg.Search.SpellcheckDistance
			}
			query := strings.Join(args, " ")
			suggestions, err := a.index().SpellCheck(cmd.Context(), query, search.SpellCheckOptions{
				Distance: distance,
				Include:  include,
				Exclude:  exclude,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				if suggestions == nil {
					suggestions = []search.Suggestion{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(suggestions)
			}

			out := output.New(cmd.OutOrStdout())
			if len(suggestions) == 0 {
				out.Success("No spelling suggestions")
				return nil
			}
			for _, s := range suggestions {
				if len(s.Candidates) == 0 {
					out.KeyValue(s.Term, "no candidates")
					continue
				}
				values := make([]string, len(s.Candidates))
				for i, c := range s.Candidates {
					values[i] = fmt.Sprintf("%s (%.2f)", c.Value, c.Score)
				}
				out.KeyValue(s.Term, strings.Join(values, ", "))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&distance, "distance", "d", 0, "Maximum edit distance, 1 to 4 (default: search.spellcheck_distance)")
	cmd.Flags().StringSliceVar(&include, "include", nil, "Custom dictionary whose terms count as correct suggestions")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Custom dictionary whose terms are never flagged")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
