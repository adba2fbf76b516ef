// Package logging centralizes zerolog setup: one component-scoped logger
// per major package, all sharing the process-wide output writer and level.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// SetVerbose raises the global level to debug; the default is info.
func SetVerbose(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// For returns a logger scoped to the named component, e.g. "decision",
// "orchestrator", "contracts", "assistant", "chatapi".
func For(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
