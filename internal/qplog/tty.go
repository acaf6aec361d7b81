package qplog

import "os"

// isTerminal reports whether f looks like an interactive terminal. This
// avoids ipp-usb's cgo isatty() binding (logger_unix.go) in favor of the
// portable os.ModeCharDevice check, since QiProg has no other reason to
// carry a cgo dependency on this path.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
