package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/dictquery/internal/fault"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Detail       string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	✗ NOT FOUND: container not found
//	   Ref: c-ordr
//
//	   Did you mean: c-order?
//
//	   → Get help: dictquery rows --help
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string
	switch opts.Level {
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "!"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "i"
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "✗"
	}
	accent := color.New(color.FgCyan)
	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
		accent.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Detail != "" {
		for _, line := range strings.Split(opts.Detail, "\n") {
			bodyColor.Fprintf(&b, "   %s\n", line)
		}
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			accent.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FaultOptions tunes how a failed call is reported
type FaultOptions struct {
	Suggestions []string
	// Verbose includes the SQL text and the driver error of execution failures
	Verbose bool
	NoColor bool
}

// FaultError formats an error returned by the engine. The header names the fault
// kind; the body carries the offending reference and, when verbose, the diagnostic.
func FaultError(err error, opts FaultOptions) string {
	var fe *fault.Error
	if !errors.As(err, &fe) {
		return FormatError(ErrorOptions{
			Level:       ErrorLevelError,
			Problem:     err.Error(),
			Suggestions: opts.Suggestions,
			NoColor:     opts.NoColor,
		})
	}

	var detail []string
	if fe.Ref != "" {
		detail = append(detail, "Ref: "+fe.Ref)
	}
	if opts.Verbose {
		detail = append(detail, fe.Diagnostic())
	}

	problem := fe.Message
	if problem == "" && fe.Err != nil && fe.Kind != fault.ExecutionFailure {
		problem = fe.Err.Error()
	}
	if problem == "" {
		problem = fe.Op
	}

	return FormatError(ErrorOptions{
		Level:        ErrorLevelError,
		Context:      kindTitle(fe.Kind),
		Problem:      problem,
		Detail:       strings.Join(detail, "\n"),
		Suggestions:  opts.Suggestions,
		HelpCommands: kindHelp(fe.Kind),
		NoColor:      opts.NoColor,
	})
}

func kindTitle(kind fault.Kind) string {
	switch kind {
	case fault.NotFound:
		return "not found"
	case fault.Unparseable:
		return "unparseable expression"
	case fault.InvalidArgument:
		return "invalid argument"
	case fault.AccessDenied:
		return "access denied"
	case fault.ExecutionFailure:
		return "query failed"
	case fault.Cancelled:
		return "cancelled"
	default:
		return "error"
	}
}

func kindHelp(kind fault.Kind) []string {
	switch kind {
	case fault.NotFound:
		return []string{"Check dictionary.path in dictquery.yaml"}
	case fault.Unparseable:
		return []string{"Pass context values: --ctx Name=value (use #Name for globals)"}
	case fault.AccessDenied:
		return []string{"Pass a principal: --role and --attr Name=value", "Review access.rules in dictquery.yaml"}
	case fault.ExecutionFailure:
		return []string{"Show the SQL: rerun with --verbose"}
	default:
		return nil
	}
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: message, NoColor: noColor})
}

// Info creates a standardized info message
func Info(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: message, NoColor: noColor})
}
