//go:build !(linux || darwin || freebsd || netbsd || openbsd || windows)

package logger

import "os"

func isTerminal(*os.File) bool { return false }
