package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/caseflow/internal/model"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Out string
}

// HistoryResult is a case's audit trail, oldest first.
type HistoryResult struct {
	CaseID  string              `json:"case_id"`
	Records []model.AuditRecord `json:"records"`
}

func (r HistoryResult) renderText(w io.Writer, verbose bool) {
	if len(r.Records) == 0 {
		fmt.Fprintf(w, "%s: no transitions recorded\n", r.CaseID)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tAT\tFROM\tTO\tREASON")
	for _, rec := range r.Records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			rec.Sequence, rec.CreatedAt.Format(time.RFC3339Nano), rec.FromState, rec.ToState, rec.Reason)
		if verbose {
			fmt.Fprintf(tw, "\t\tfacts\t%s\t\n", rec.FactsSnapshot)
		}
	}
	tw.Flush()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <case-id>",
		Short: "List a case's audit records",
		Long: `List every committed transition of a case in commit order.

With --out the records are also written as indented JSON to a file. The
file is replaced atomically.

Examples:
  casectl history claim-42
  casectl history claim-42 --out exports/claim-42.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "also write the records as JSON to this file")

	return cmd
}

func runHistory(opts *HistoryOptions, caseID string, cmd *cobra.Command) error {
	rt, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := commandContext(cmd)
	if _, err := rt.store.GetCase(ctx, caseID); err != nil {
		return rt.caseLookupError(caseID, err)
	}

	records, err := rt.store.ListAudit(ctx, caseID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit records", err)
	}
	result := HistoryResult{CaseID: caseID, Records: records}

	if opts.Out != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode history", err)
		}
		if err := writeFileAtomic(opts.fs(), opts.Out, append(data, '\n')); err != nil {
			return WrapExitError(ExitCommandError, "failed to write history", err)
		}
		rt.out.VerboseLog("wrote %d records to %s", len(records), opts.Out)
	}

	return rt.out.Success(result)
}
