package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// InitResult is the output of the init command.
type InitResult struct {
	Path          string `json:"path"`
	Driver        string `json:"driver"`
	SchemaVersion int64  `json:"schema_version"`
}

func (r InitResult) renderText(w io.Writer, _ bool) {
	fmt.Fprintf(w, "Database ready: %s (driver %s, schema version %d)\n", r.Path, r.Driver, r.SchemaVersion)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the case database",
		Long: `Create the case database if it does not exist and apply any pending
schema migrations. Safe to run repeatedly.

Examples:
  casectl init --db ./cases.db
  CASEFLOW_DB_DRIVER=sqlite casectl init`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	rt, err := openRuntime(opts, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	version, err := rt.store.SchemaVersion(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read schema version", err)
	}

	return rt.out.Success(InitResult{
		Path:          rt.cfg.Database.Path,
		Driver:        rt.store.Driver(),
		SchemaVersion: version,
	})
}
