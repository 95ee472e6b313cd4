package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/opcpublisher/plcharness/internal/lifecycle"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess = 0
	// ExitCodeError is any failure without a more specific code.
	ExitCodeError = 1
	// ExitCodeUnsupportedPlatform means no engine endpoint exists for this OS.
	ExitCodeUnsupportedPlatform = 2
	// ExitCodeEngineUnreachable means the engine did not answer.
	ExitCodeEngineUnreachable = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(newRootOptions()).ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, lifecycle.ErrUnsupportedPlatform):
		return ExitCodeUnsupportedPlatform
	case errors.Is(err, lifecycle.ErrConnection):
		return ExitCodeEngineUnreachable
	default:
		return ExitCodeError
	}
}
