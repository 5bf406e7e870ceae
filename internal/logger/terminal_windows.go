//go:build windows

package logger

import (
	"os"

	"golang.org/x/sys/windows"
)

// isTerminal reports whether f is attached to a console
func isTerminal(f *os.File) bool {
	var mode uint32
	return windows.GetConsoleMode(windows.Handle(f.Fd()), &mode) == nil
}
