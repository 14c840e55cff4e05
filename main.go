package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	env := defaultRuntimeEnv()

	ctx, stop := shutdownContext(context.Background(), newLogger(slog.LevelWarn, env.errOut))
	err := newRootCmd(env).ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(reportError(env.errOut, err))
	}
}
