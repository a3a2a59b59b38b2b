package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/andrei-cloud/go_onecode/internal/app"
	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
)

// Run executes the command line args and returns the process exit code.
// Cancelling ctx, as an interrupt does, yields 130.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, err := NewRootCommand()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return errorcodes.ExitFailure
	}

	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	executed, err := root.ExecuteContextC(ctx)
	if executed != nil {
		if a := app.FromContext(executed.Context()); a != nil {
			a.Close()
		}
	}

	if ctx.Err() != nil {
		fmt.Fprintln(stderr, "\nOperation cancelled by user")
		return errorcodes.ExitInterrupted
	}

	if err != nil {
		// A bare exit status carries a plugin or tool exit code that was already reported.
		if _, bare := err.(errorcodes.ExitError); !bare {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}

		return errorcodes.CodeOf(err)
	}

	return errorcodes.ExitSuccess
}
