// Command lvplan loads an HCL domain and searches it for a solution state.
//
//	lvplan run DOMAIN.hcl... [--config lvplan.yaml] [--max-nodes N] [--no-backtrack]
//	                          [--selector max|min] [--until KEY] [--path]
//	lvplan check DOMAIN.hcl...
//
// Exit codes: 0 solved / valid, 1 search finished without a solution, 2 any other error.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

const (
	exitOK       = 0
	exitUnsolved = 1
	exitError    = 2
)

// errUnsolved marks a run that ended cleanly without reaching the goal.
var errUnsolved = errors.New("no solution found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUnsolved):
		return exitUnsolved
	default:
		return exitError
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lvplan",
		Short:         "Weighted best-first search over HCL domains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetErrPrefix("lvplan:")
	root.AddCommand(newRunCmd(), newCheckCmd())

	for _, c := range root.Commands() {
		run := c.RunE
		c.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil && !errors.Is(err, errUnsolved) {
				cmd.PrintErrln(cmd.ErrPrefix(), err)
			}
			return err
		}
	}

	return root
}
