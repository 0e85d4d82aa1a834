package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"

	errwrap "github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/errors"
)

// osExit is replaced in tests.
var (
	exitProcess = os.Exit
	osExit      = exitProcess
)

// Run executes the root command and returns the process exit code. Config
// envelopes map to the foundry config exit code; other failures to the
// generic one.
func Run() int {
	err := Execute()
	if err == nil {
		return 0
	}
	code := foundry.ExitFailure
	if env := asEnvelope(err); env != nil && env.Code == errwrap.CodeConfigInvalid {
		code = foundry.ExitConfigInvalid
	}
	return exitCodeValue(code)
}

func exitCodeValue(code foundry.ExitCode) int {
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		return info.Code
	}
	return int(code)
}

// ExitWithCodeStderr reports to stderr and exits. It serves until the CLI
// logger exists.
func ExitWithCodeStderr(code foundry.ExitCode, msg string, err error) {
	writeFatal(os.Stderr, code, msg, err)
	osExit(exitCodeValue(code))
}

func writeFatal(w io.Writer, code foundry.ExitCode, msg string, err error) {
	env := asEnvelope(err)
	switch {
	case env != nil:
		fmt.Fprintf(w, "FATAL: %s [%s]: %s (correlation: %s)\n", msg, env.Code, env.Message, env.CorrelationID)
	case err != nil:
		fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	default:
		fmt.Fprintf(w, "FATAL: %s\n", msg)
	}
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(w, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	} else {
		fmt.Fprintf(w, "Exit Code: %d\n", code)
	}
}

func asEnvelope(err error) *gferrors.ErrorEnvelope {
	var env *gferrors.ErrorEnvelope
	if stderrors.As(err, &env) {
		return env
	}
	return nil
}
