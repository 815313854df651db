package logging

import (
	"fmt"
	"io"
	"os"
)

// Progress and results for the operator go to Stdout/Stderr, apart from
// the structured records in Logger and the run log.
var (
	// Stdout receives UserInfo and UserSuccess output.
	Stdout io.Writer = os.Stdout
	// Stderr receives UserWarning and UserError output.
	Stderr io.Writer = os.Stderr

	// Plain drops the status glyphs. Setup turns it on with JSON logging,
	// where output is usually collected rather than read on a terminal.
	Plain bool
)

const (
	glyphInfo    = "ℹ"
	glyphSuccess = "✓"
	glyphWarning = "⚠"
	glyphError   = "✗"
)

func userf(w io.Writer, glyph, format string, args []any) {
	msg := fmt.Sprintf(format, args...)
	if !Plain {
		msg = glyph + " " + msg
	}
	fmt.Fprintln(w, msg)
}

// UserInfo prints progress to Stdout.
func UserInfo(format string, args ...any) { userf(Stdout, glyphInfo, format, args) }

// UserSuccess prints a successful outcome to Stdout.
func UserSuccess(format string, args ...any) { userf(Stdout, glyphSuccess, format, args) }

// UserWarning prints a failed sandbox or degraded step to Stderr.
func UserWarning(format string, args ...any) { userf(Stderr, glyphWarning, format, args) }

// UserError prints a fatal problem to Stderr.
func UserError(format string, args ...any) { userf(Stderr, glyphError, format, args) }
