// Package logging provides a thin logger capability passed explicitly into
// resolvers and services, instead of a global mutable logger.
package logging

import (
	"io"
	"log"
	"os"
)

// Logger is the logging capability every component accepts by reference.
// Disabled() must compile to a single predictable branch so hot paths (the
// offline cascade, the online worker pool) pay nothing when logging is off.
type Logger interface {
	Printf(format string, args ...any)
	Println(args ...any)
	Disabled() bool
}

type stdLogger struct {
	l *log.Logger
}

// New builds a Logger backed by the standard library, matching the
// teacher's per-service log.New(os.Stdout, "<prefix>: ", log.LstdFlags|log.Lmsgprefix)
// convention.
func New(prefix string) Logger {
	return &stdLogger{l: log.New(os.Stdout, prefix+": ", log.LstdFlags|log.Lmsgprefix)}
}

// NewWriter builds a Logger writing to an arbitrary writer, used for file
// logging under <log_dir> per spec.md §6.
func NewWriter(w io.Writer, prefix string) Logger {
	return &stdLogger{l: log.New(w, prefix+": ", log.LstdFlags|log.Lmsgprefix)}
}

func (s *stdLogger) Printf(format string, args ...any) { s.l.Printf(format, args...) }
func (s *stdLogger) Println(args ...any)                { s.l.Println(args...) }
func (s *stdLogger) Disabled() bool                     { return false }

type nopLogger struct{}

// Nop is a logger that discards everything; used in tests and when the
// caller wants a predictable zero-overhead no-op.
var Nop Logger = nopLogger{}

func (nopLogger) Printf(format string, args ...any) {}
func (nopLogger) Println(args ...any)                {}
func (nopLogger) Disabled() bool                     { return true }
