// Package cprint prints the recognizer's diagnostic stream to a terminal,
// color-coded by severity. Adapted from the teacher's conditional,
// mutex-guarded color printer (originally themed around
// create/update/delete), re-themed around error/warning/info.
package cprint

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/acarl005/stripansi"
	"github.com/fatih/color"

	"github.com/textsense/recognizer/pkg/types"
)

var (
	// mu synchronizes writes from multiple goroutines.
	mu sync.Mutex
	// DisableOutput disables all output.
	DisableOutput bool
)

func conditionalPrintf(fn func(string, ...interface{}), format string, a ...interface{}) {
	if DisableOutput {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fn(format, a...)
}

func conditionalPrintln(fn func(...interface{}), a ...interface{}) {
	if DisableOutput {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fn(a...)
}

func conditionalPrintlnCustomWriter(fn func(io.Writer, ...interface{}), w io.Writer, a ...interface{}) {
	if DisableOutput {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fn(w, a...)
}

func conditionalPrintfCustomWriter(fn func(io.Writer, string, ...interface{}), w io.Writer, format string, a ...interface{}) {
	if DisableOutput {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fn(w, format, a...)
}

var (
	errorPrintf   = color.New(color.FgRed).PrintfFunc()
	warningPrintf = color.New(color.FgYellow).PrintfFunc()
	infoPrintf    = color.New(color.FgCyan).PrintfFunc()

	// ErrorPrintf is fmt.Printf with red as foreground color.
	ErrorPrintf = func(format string, a ...interface{}) {
		conditionalPrintf(errorPrintf, format, a...)
	}

	// WarningPrintf is fmt.Printf with yellow as foreground color.
	WarningPrintf = func(format string, a ...interface{}) {
		conditionalPrintf(warningPrintf, format, a...)
	}

	// InfoPrintf is fmt.Printf with cyan as foreground color.
	InfoPrintf = func(format string, a ...interface{}) {
		conditionalPrintf(infoPrintf, format, a...)
	}

	errorPrintln   = color.New(color.FgRed).PrintlnFunc()
	warningPrintln = color.New(color.FgYellow).PrintlnFunc()
	infoPrintln    = color.New(color.FgCyan).PrintlnFunc()

	warningFprintln = color.New(color.FgYellow).FprintlnFunc()
	errorFprintln   = color.New(color.FgRed).FprintlnFunc()
	warningFprintf  = color.New(color.FgYellow).FprintfFunc()
	errorFprintf    = color.New(color.FgRed).FprintfFunc()

	// ErrorPrintln is fmt.Println with red as foreground color.
	ErrorPrintln = func(a ...interface{}) {
		conditionalPrintln(errorPrintln, a...)
	}

	// WarningPrintln is fmt.Println with yellow as foreground color.
	WarningPrintln = func(a ...interface{}) {
		conditionalPrintln(warningPrintln, a...)
	}

	// InfoPrintln is fmt.Println with cyan as foreground color.
	InfoPrintln = func(a ...interface{}) {
		conditionalPrintln(infoPrintln, a...)
	}

	// WarningPrintlnStdErr is fmt.Println with yellow as foreground color,
	// printed to stderr.
	WarningPrintlnStdErr = func(a ...interface{}) {
		conditionalPrintlnCustomWriter(warningFprintln, os.Stderr, a...)
	}

	// ErrorPrintlnStdErr is fmt.Println with red as foreground color,
	// printed to stderr.
	ErrorPrintlnStdErr = func(a ...interface{}) {
		conditionalPrintlnCustomWriter(errorFprintln, os.Stderr, a...)
	}

	// WarningPrintfStdErr is fmt.Printf with yellow as foreground color,
	// printed to stderr.
	WarningPrintfStdErr = func(format string, a ...interface{}) {
		conditionalPrintfCustomWriter(warningFprintf, os.Stderr, format, a...)
	}

	// ErrorPrintfStdErr is fmt.Printf with red as foreground color, printed
	// to stderr.
	ErrorPrintfStdErr = func(format string, a ...interface{}) {
		conditionalPrintfCustomWriter(errorFprintf, os.Stderr, format, a...)
	}
)

// PrintDiagnostic renders d to the terminal, color-coded by severity.
// Errors and warnings go to stderr (so they never corrupt a JSON-mode
// stdout stream the way the teacher's CreatePrintf does); info goes to
// stdout. The message is run through stripansi first: plugin authors are
// untrusted input in this domain, unlike the teacher's own YAML operators,
// so diagnostic text must not be able to smuggle terminal escape sequences.
func PrintDiagnostic(d types.Diagnostic) {
	clean := stripansi.Strip(d.Message)
	line := fmt.Sprintf("[%s] %s", d.Severity, clean)
	if d.Source != "" {
		line = fmt.Sprintf("[%s] %s: %s", d.Severity, d.Source, clean)
	}

	switch d.Severity {
	case types.SeverityError:
		ErrorPrintlnStdErr(line)
	case types.SeverityWarning:
		WarningPrintlnStdErr(line)
	default:
		InfoPrintln(line)
	}
}
