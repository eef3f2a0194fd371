package sweep

import (
	"fmt"
	"strings"
)

// SetupError reports collaborators missing from a Driver. It is returned
// before any measurement is taken.
type SetupError struct {
	Missing []string
}

func (e *SetupError) Error() string {
	return "benchmark not set up: missing " + strings.Join(e.Missing, ", ")
}

// SettingsParseError reports a settings file that could not be loaded.
type SettingsParseError struct {
	Path string
	Err  error
}

func (e *SettingsParseError) Error() string {
	return fmt.Sprintf("load settings %s: %v", e.Path, e.Err)
}

func (e *SettingsParseError) Unwrap() error { return e.Err }
