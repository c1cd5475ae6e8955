package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/caseflow/internal/store"
)

// VerifyResult is the output of a successful chain check.
type VerifyResult struct {
	CaseID  string `json:"case_id"`
	Records int    `json:"records"`
	Valid   bool   `json:"valid"`
}

func (r VerifyResult) renderText(w io.Writer, _ bool) {
	fmt.Fprintf(w, "%s: audit chain intact (%d records)\n", r.CaseID, r.Records)
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <case-id>",
		Short: "Check that a case's audit trail reproduces its state",
		Long: `Replay a case's audit records from CREATED and check that each record
starts where the previous one ended, timestamps never go backwards, and the
case's current state, version and last update match the trail.

Exits 1 when the chain is broken.

Examples:
  casectl verify claim-42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}
}

func runVerify(opts *RootOptions, caseID string, cmd *cobra.Command) error {
	rt, err := openRuntime(opts, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := commandContext(cmd)
	err = rt.store.VerifyChain(ctx, caseID)
	switch {
	case errors.Is(err, store.ErrBrokenChain):
		return rt.out.Reject(ExitFailure, "BROKEN_CHAIN", err.Error(),
			map[string]string{"case_id": caseID}, err)
	case err != nil:
		return rt.caseLookupError(caseID, err)
	}

	records, err := rt.store.ListAudit(ctx, caseID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit records", err)
	}
	return rt.out.Success(VerifyResult{CaseID: caseID, Records: len(records), Valid: true})
}
