package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/caseflow/internal/store"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Title string
	Facts FactFlags
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <case-id>",
		Short: "Edit a case's title or stored facts",
		Long: `Edit a case's title or stored facts. Facts given here are merged over
the stored ones. The state, version and updated timestamp never change:
use 'casectl transition' to move a case.

Examples:
  casectl update claim-42 --title "Water damage (kitchen)"
  casectl update claim-42 --fact documents_received=true`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "new case title")
	addFactFlags(cmd, &opts.Facts)

	return cmd
}

func runUpdate(opts *UpdateOptions, caseID string, cmd *cobra.Command) error {
	titleSet := cmd.Flags().Changed("title")
	if !titleSet && !opts.Facts.Set() {
		return NewExitError(ExitCommandError, "nothing to update: pass --title, --fact or --facts")
	}

	rt, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := commandContext(cmd)
	c, err := rt.store.GetCase(ctx, caseID)
	if err != nil {
		return rt.caseLookupError(caseID, err)
	}

	var details store.CaseDetails
	if titleSet {
		details.Title = &opts.Title
	}
	if opts.Facts.Set() {
		merged, err := opts.Facts.Apply(c.Facts)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid facts", err)
		}
		details.Facts = &merged
	}

	if err := rt.store.UpdateCaseDetails(ctx, caseID, details); err != nil {
		return rt.caseLookupError(caseID, err)
	}

	c, err = rt.store.GetCase(ctx, caseID)
	if err != nil {
		return rt.caseLookupError(caseID, err)
	}
	return rt.out.Success(newCaseView(c, rt.table))
}
