// File: internal/builder/errors.go
// Brief: Build error classification.

package builder

import "fmt"

// InvalidConfigError reports caller-supplied synthesizer settings the
// toolchain rejected. Distinct from toolchain failures so the caller knows to
// fix configuration instead of retrying.
type InvalidConfigError struct {
	Err error
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid synthesizer configuration: %v", e.Err)
}

func (e *InvalidConfigError) Unwrap() error { return e.Err }
