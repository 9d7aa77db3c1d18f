// Package logging centralizes the engine's logger construction so callers
// never import github.com/op/go-logging directly. One process-wide backend
// is installed at init; Get returns a module-scoped *logging.Logger that
// writes through it.
package logging

import (
	"os"

	"github.com/op/go-logging"
)

var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} %{module}%{color:reset} %{message}`,
)

func init() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
}

// Get returns the logger for the named module (typically the package name).
// Multiple calls with the same name return independently configured loggers
// sharing the one backend installed above.
func Get(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}

// SetLevel adjusts the verbosity of a module's logger at runtime, used by
// tests that want to silence search lifecycle noise.
func SetLevel(level logging.Level, module string) {
	logging.SetLevel(level, module)
}
