package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/caseflow/internal/engine"
	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/metrics"
	"github.com/roach88/caseflow/internal/model"
	"github.com/roach88/caseflow/internal/state"
)

// TransitionOptions holds flags for the transition command.
type TransitionOptions struct {
	*RootOptions
	Reason      string
	Facts       FactFlags
	IgnoreFacts bool
	DryRun      bool
	MetricsFile string
}

// TransitionResult is the output of a committed transition.
type TransitionResult struct {
	model.AuditRecord
}

func (r TransitionResult) renderText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "%s: %s -> %s (sequence %d)\n", r.CaseID, r.FromState, r.ToState, r.Sequence)
	if verbose {
		fmt.Fprintf(w, "Reason:   %s\n", r.Reason)
		fmt.Fprintf(w, "Facts:    %s\n", r.FactsSnapshot)
		fmt.Fprintf(w, "At:       %s\n", r.CreatedAt.Format(time.RFC3339Nano))
	}
}

// DryRunResult is the output of transition --dry-run.
type DryRunResult struct {
	CaseID  string      `json:"case_id"`
	To      state.State `json:"to"`
	Allowed bool        `json:"allowed"`
}

func (r DryRunResult) renderText(w io.Writer, _ bool) {
	fmt.Fprintf(w, "%s: %s is allowed (dry run, nothing written)\n", r.CaseID, r.To)
}

// RejectionDetails is the error detail payload for a rejected transition.
type RejectionDetails struct {
	CaseID    string `json:"case_id"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Guard     string `json:"guard,omitempty"`
	Retryable bool   `json:"retryable"`
}

// NewTransitionCommand creates the transition command.
func NewTransitionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransitionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transition <case-id> <target-state>",
		Short: "Move a case to another state",
		Long: `Request a state change through the transition engine.

The move must be allowed by the transition table, every guard for it must
pass on the facts, and --reason must not be blank. Facts default to the
case's stored facts; --fact and --facts are overlaid on them.
--ignore-case-facts starts from an empty set instead. The facts used are
recorded in the audit entry; the stored facts are not changed.

Exit codes:
  0  transition committed (or allowed, with --dry-run)
  1  transition rejected (NOT_FOUND, INVALID_STATE, ILLEGAL_TRANSITION,
     GUARD_FAILURE, INVALID_REASON, CONCURRENT_MODIFICATION)
  2  command error or PERSISTENCE_FAILURE

Examples:
  casectl transition claim-42 UNDER_REVIEW --reason "submitted"
  casectl transition claim-42 APPROVED --reason "within limits" \
      --fact amount_within_threshold=true --fact documents_complete=true
  casectl transition claim-42 CLOSED --dry-run`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Reason, "reason", "r", "", "why the case is moving (required unless --dry-run)")
	addFactFlags(cmd, &opts.Facts)
	cmd.Flags().BoolVar(&opts.IgnoreFacts, "ignore-case-facts", false, "do not start from the case's stored facts")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "check the transition without writing")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus text metrics for this request to a file")

	return cmd
}

func runTransition(opts *TransitionOptions, caseID, targetText string, cmd *cobra.Command) error {
	rt, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	target, err := state.Parse(targetText)
	if err != nil {
		return rt.out.Reject(ExitFailure, string(engine.CodeInvalidState), err.Error(),
			RejectionDetails{CaseID: caseID, To: targetText}, err)
	}

	ctx := commandContext(cmd)

	base := fact.Empty()
	if !opts.IgnoreFacts {
		c, err := rt.store.GetCase(ctx, caseID)
		if err != nil {
			return rt.caseLookupError(caseID, err)
		}
		base = c.Facts
	}
	facts, err := opts.Facts.Apply(base)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid facts", err)
	}

	var reg *prometheus.Registry
	if opts.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		rec, err := metrics.NewRecorder(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to set up metrics", err)
		}
		rt.engine = rt.newEngine(engine.WithMetrics(rec))
	}

	if opts.DryRun {
		if err := rt.engine.CanTransition(ctx, caseID, target, facts); err != nil {
			return rejectTransition(rt, err)
		}
		return rt.out.Success(DryRunResult{CaseID: caseID, To: target, Allowed: true})
	}

	rec, txErr := rt.engine.RequestTransition(ctx, caseID, target, facts, opts.Reason)

	if reg != nil {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		rt.out.VerboseLog("metrics written to %s", opts.MetricsFile)
	}

	if txErr != nil {
		return rejectTransition(rt, txErr)
	}
	return rt.out.Success(TransitionResult{AuditRecord: rec})
}

// rejectTransition reports an engine error. PERSISTENCE_FAILURE is a command
// error; every other code is a rejection.
func rejectTransition(rt *runtime, err error) error {
	var te *engine.TransitionError
	if !errors.As(err, &te) {
		return WrapExitError(ExitCommandError, "transition failed", err)
	}

	exitCode := ExitFailure
	if te.Code == engine.CodePersistenceFailure {
		exitCode = ExitCommandError
	}

	details := RejectionDetails{
		CaseID:    te.CaseID,
		Guard:     te.Guard,
		Retryable: engine.IsRetryable(te),
	}
	if te.From.IsValid() {
		details.From = te.From.String()
	}
	if te.To.IsValid() {
		details.To = te.To.String()
	}

	return rt.out.Reject(exitCode, string(te.Code), te.Message, details, err)
}
