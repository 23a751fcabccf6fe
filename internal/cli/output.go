package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Partial failure or failed check
	ExitCommandError = 2 // Command error (bad arguments, database not found, etc.)
)

// Error codes reported in CLI responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Item not found
	ErrCodeStore       = "E003" // Store read/write failed
	ErrCodeDuplication = "E004" // Duplication failed
	ErrCodePartial     = "E005" // Some children failed
	ErrCodeQuota       = "E006" // Cascade step quota exceeded
	ErrCodeCheckFailed = "E007" // Link invariants violated
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps an engine error to a response code and exit code.
func classify(err error) (string, int) {
	switch {
	case engine.IsPartialFailure(err):
		return ErrCodePartial, ExitFailure
	case engine.IsNotFound(err):
		return ErrCodeNotFound, ExitCommandError
	case engine.IsDuplicationFailure(err):
		return ErrCodeDuplication, ExitCommandError
	case engine.IsQuotaError(err):
		return ErrCodeQuota, ExitCommandError
	case engine.IsStoreFailure(err):
		return ErrCodeStore, ExitCommandError
	default:
		return ErrCodeGeneric, ExitCommandError
	}
}

// texter is implemented by results with a human-readable rendering.
type texter interface {
	Text(s Styles) string
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostics (defaults to Writer)
	Styles    Styles
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Config.Output.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Styles:    DefaultStyles(),
	}
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if t, ok := data.(texter); ok {
		_, err := fmt.Fprintln(f.Writer, t.Text(f.Styles))
		return err
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	_, err := fmt.Fprintf(w, "%s [%s]: %s\n", f.Styles.Error.Render("Error"), code, message)
	return err
}

// Fail reports err and returns the ExitError the command should return.
// details is included in JSON output.
func (f *OutputFormatter) Fail(message string, err error, details any) error {
	code, exit := classify(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), details)
	return WrapExitError(exit, message, err)
}
