package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/store"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	ID    string
	Title string
	Facts FactFlags
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a case in the initial state",
		Long: `Create a case. New cases always start in CREATED with version 1 and
no audit records.

Examples:
  casectl create --title "Refund for order 1182"
  casectl create --id claim-42 --title "Water damage" --fact amount=1200 --fact priority="high"
  casectl create --title "Batch import" --facts '{"source":"csv","rows":18}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "case id (default: generated UUIDv7)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "case title")
	addFactFlags(cmd, &opts.Facts)
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// addFactFlags registers --fact and --facts on cmd.
func addFactFlags(cmd *cobra.Command, f *FactFlags) {
	cmd.Flags().StringArrayVar(&f.Pairs, "fact", nil, "fact as name=value (repeatable)")
	cmd.Flags().StringVar(&f.JSON, "facts", "", "facts as a flat JSON object")
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
	facts, err := opts.Facts.Apply(fact.Empty())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid facts", err)
	}

	rt, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	c, err := rt.store.CreateCase(commandContext(cmd), store.NewCase{
		ID:    opts.ID,
		Title: opts.Title,
		Facts: facts,
	})
	if errors.Is(err, store.ErrCaseExists) {
		return rt.out.Reject(ExitFailure, "CASE_EXISTS", fmt.Sprintf("case %s already exists", opts.ID),
			map[string]string{"case_id": opts.ID}, err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create case", err)
	}

	rt.out.VerboseLog("created case %s", c.ID)
	return rt.out.Success(newCaseView(c, rt.table))
}
