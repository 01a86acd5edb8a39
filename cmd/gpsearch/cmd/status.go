package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gpsearch/internal/config"
	"github.com/Aman-CERP/gpsearch/internal/output"
	"github.com/Aman-CERP/gpsearch/internal/search"
)

// statusReport is the --json form of the status command.
type statusReport struct {
	Index   *search.Status `json:"index"`
	Backend string         `json:"backend_addr,omitempty"`
	Source  string         `json:"source,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and status",
		Long: `Display information about the search index:
  - Whether the backing store supports search
  - Whether the index exists
  - Number of indexed documents`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	st, err := a.index().Status(cmd.Context())
	if err != nil {
		return err
	}

	report := statusReport{Index: st, Source: a.cfg.Source.Type}
	if a.cfg.Backend.Type != config.BackendMemory {
		report.Backend = a.cfg.Backend.Addr
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	out := output.New(cmd.OutOrStdout())
	switch {
	case st.Degraded:
		out.Warning("Search module not available: indexing and search are disabled")
	case !st.Exists:
		out.Warning("Index does not exist. Run 'gpsearch create' or 'gpsearch reindex'")
	default:
		out.Successf("Index %s is ready", st.Name)
	}
	out.Newline()
	out.KeyValue("Index:", st.Name)
	out.KeyValue("Prefix:", st.Prefix)
	out.KeyValue("Backend:", st.Backend)
	if report.Backend != "" {
		out.KeyValue("Address:", report.Backend)
	}
	out.KeyValue("Documents:", st.NumDocs)
	if report.Source != "" {
		out.KeyValue("Source:", report.Source)
	}
	return nil
}
