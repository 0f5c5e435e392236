package core

import (
	"os"
	"syscall"
)

// Process exit codes. Signal exits follow the 128+signo convention.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeSIGINT  = 130
	ExitCodeSIGTERM = 143
)

// ExitCodeForSignal maps a shutdown signal to its exit code.
func ExitCodeForSignal(sig os.Signal) int {
	switch sig {
	case os.Interrupt:
		return ExitCodeSIGINT
	case syscall.SIGTERM:
		return ExitCodeSIGTERM
	default:
		return ExitCodeError
	}
}

// ExitCodeName is used in the final shutdown log line.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}
