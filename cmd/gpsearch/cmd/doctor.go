package cmd

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gpsearch/internal/index"
	"github.com/Aman-CERP/gpsearch/internal/preflight"
	"github.com/Aman-CERP/gpsearch/internal/search"
)

// doctorReport is the --json form of the doctor command.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd() *cobra.Command {
	var (
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the backing store, index and record source",
		Long: `Run system checks before indexing or serving:
  - Data directory is writable
  - Backing store answers
  - Search module is loaded
  - Search index exists
  - Record source can be read

Exits non-zero when a required check fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, jsonOutput, verbose)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")

	return cmd
}

func runDoctor(cmd *cobra.Command, jsonOutput, verbose bool) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	target := preflight.Target{Config: cfg}
	backend, err := openBackend(cfg)
	if err == nil {
		defer func() { _ = backend.Close() }()
		target.Backend = backend
		// The index probe fails on an unreachable store; the backend check reports that.
		target.Index, target.IndexErr = search.New(ctx, backend, cfg.Index.Name, cfg.Index.Prefix, index.Schema(),
			search.WithNamespace(cfg.Backend.Namespace))
	}

	checker := preflight.New(
		preflight.WithOutput(cmd.OutOrStdout()),
		preflight.WithVerbose(verbose),
	)
	results := checker.RunAll(ctx, target)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(doctorReport{Status: checker.SummaryStatus(results), Checks: results}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return errors.New("system check failed")
	}
	return nil
}
