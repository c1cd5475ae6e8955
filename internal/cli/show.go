package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/caseflow/internal/model"
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/store"
	"github.com/roach88/caseflow/internal/transition"
)

// CaseView is a case together with the states it may move to next.
type CaseView struct {
	model.Case
	AllowedTargets []state.State `json:"allowed_targets"`
}

func newCaseView(c model.Case, table *transition.Table) CaseView {
	return CaseView{Case: c, AllowedTargets: table.AllowedTargets(c.CurrentState)}
}

func (v CaseView) renderText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Case:     %s\n", v.ID)
	fmt.Fprintf(w, "Title:    %s\n", v.Title)
	fmt.Fprintf(w, "State:    %s\n", v.CurrentState)
	fmt.Fprintf(w, "Facts:    %s\n", v.Facts)
	fmt.Fprintf(w, "Created:  %s\n", v.CreatedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Updated:  %s\n", v.UpdatedAt.Format(time.RFC3339Nano))
	if verbose {
		fmt.Fprintf(w, "Version:  %d\n", v.Version)
	}

	if len(v.AllowedTargets) == 0 {
		fmt.Fprintln(w, "Next:     (terminal)")
		return
	}
	names := make([]string, len(v.AllowedTargets))
	for i, s := range v.AllowedTargets {
		names[i] = s.String()
	}
	fmt.Fprintf(w, "Next:     %s\n", strings.Join(names, ", "))
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <case-id>",
		Short: "Show a case and its allowed next states",
		Long: `Show a case's current state, stored facts and the states the
transition table allows next.

Examples:
  casectl show 0193a5c2-7f3e-7c1a-9b2d-5e8f1a2b3c4d
  casectl show claim-42 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
}

func runShow(opts *RootOptions, caseID string, cmd *cobra.Command) error {
	rt, err := openRuntime(opts, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	c, err := rt.store.GetCase(commandContext(cmd), caseID)
	if err != nil {
		return rt.caseLookupError(caseID, err)
	}
	return rt.out.Success(newCaseView(c, rt.table))
}

// caseLookupError reports a failed case read: NOT_FOUND is a rejection,
// anything else a command error.
func (rt *runtime) caseLookupError(caseID string, err error) error {
	if errors.Is(err, store.ErrCaseNotFound) {
		return rt.out.Reject(ExitFailure, "NOT_FOUND", fmt.Sprintf("case %s does not exist", caseID),
			map[string]string{"case_id": caseID}, err)
	}
	return WrapExitError(ExitCommandError, "failed to read case", err)
}
