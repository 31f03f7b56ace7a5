package cli

import "fmt"

// ExitCoder is an error that carries a process exit code.
type ExitCoder interface {
	error
	ExitCode() int
}

// UsageError is a user mistake: the message and the command's help are printed and the exit code is 2.
type UsageError struct {
	Message string
}

func (e UsageError) Error() string { return e.Message }
func (e UsageError) ExitCode() int { return 2 }

func usageErrorf(format string, args ...any) UsageError {
	return UsageError{Message: fmt.Sprintf(format, args...)}
}

// Usagef returns a UsageError, for handlers that detect misuse after argument validation.
func Usagef(format string, args ...any) error {
	return usageErrorf(format, args...)
}

// ExitError exits with Code after printing Err (if any). Code 0 exits silently.
type ExitError struct {
	Code int
	Err  error
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e ExitError) Unwrap() error { return e.Err }
func (e ExitError) ExitCode() int { return e.Code }
