package cmd

import (
	"errors"
	"fmt"
)

const (
	ExitOK     = 0
	ExitFatal  = 1
	ExitConfig = 2
)

// ErrShutdownTimeout is returned by Node.Run when the node did not shut down within the
// configured shutdown timeout.
var ErrShutdownTimeout = errors.New("node shutdown timed out")

// ConfigError is returned when the node is misconfigured. It is always detected before
// any subsystem is started.
type ConfigError struct {
	Err error
}

func NewConfigError(err error) error {
	return &ConfigError{Err: err}
}

func NewConfigErrorf(msg string, args ...interface{}) error {
	return &ConfigError{Err: fmt.Errorf(msg, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// ExitCode maps the result of running a node to the process exit code: ExitConfig for
// configuration errors, ExitFatal for subsystem failures, shutdown timeouts and any other
// error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsConfigError(err):
		return ExitConfig
	default:
		return ExitFatal
	}
}
