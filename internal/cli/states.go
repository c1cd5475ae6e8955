package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/caseflow/internal/guard"
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/transition"
)

// StateInfo describes one state of the workflow.
type StateInfo struct {
	Name     string       `json:"name"`
	Initial  bool         `json:"initial,omitempty"`
	Terminal bool         `json:"terminal,omitempty"`
	Targets  []TargetInfo `json:"targets"`
}

// TargetInfo is one allowed move out of a state and the guards on it.
type TargetInfo struct {
	To     string   `json:"to"`
	Guards []string `json:"guards,omitempty"`
}

// StatesResult is the output of the states command.
type StatesResult struct {
	States []StateInfo `json:"states"`
}

func describeStates(table *transition.Table, guards *guard.Registry) StatesResult {
	var out StatesResult
	for _, s := range state.All() {
		info := StateInfo{
			Name:     s.String(),
			Initial:  s == state.Initial,
			Terminal: s.IsTerminal(),
			Targets:  []TargetInfo{},
		}
		for _, to := range table.AllowedTargets(s) {
			t := TargetInfo{To: to.String()}
			for _, g := range guards.GuardsFor(s, to) {
				t.Guards = append(t.Guards, g.Name())
			}
			info.Targets = append(info.Targets, t)
		}
		out.States = append(out.States, info)
	}
	return out
}

func (r StatesResult) renderText(w io.Writer, verbose bool) {
	for _, s := range r.States {
		var tags []string
		if s.Initial {
			tags = append(tags, "initial")
		}
		if s.Terminal {
			tags = append(tags, "terminal")
		}
		if len(tags) > 0 {
			fmt.Fprintf(w, "%s (%s)\n", s.Name, strings.Join(tags, ", "))
		} else {
			fmt.Fprintln(w, s.Name)
		}

		for _, t := range s.Targets {
			if len(t.Guards) == 0 || !verbose {
				fmt.Fprintf(w, "  -> %s\n", t.To)
				continue
			}
			fmt.Fprintf(w, "  -> %s  [%s]\n", t.To, strings.Join(t.Guards, ", "))
		}
	}
}

// NewStatesCommand creates the states command.
func NewStatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "Show the workflow states, allowed moves and guards",
		Long: `Print every state with the moves the transition table allows out of it.
With --verbose the guards on each move are listed as well. A guard policy
configured with policy.path (or CASEFLOW_POLICY_PATH) is loaded and shown.

Examples:
  casectl states -v
  casectl states --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(rootOpts, cmd)
			if err != nil {
				return err
			}
			return rt.out.Success(describeStates(rt.table, rt.guards))
		},
	}
}
