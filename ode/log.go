package ode

import (
	"io"

	kitlog "github.com/go-kit/kit/log"
)

// NewLogger returns a logfmt logger writing to w, every line tagged
// with the name of the component.
func NewLogger(w io.Writer, name string) kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	return kitlog.With(logger, "component", name)
}

// NopLogger is the logger components use until one is set.
func NopLogger() kitlog.Logger {
	return kitlog.NewNopLogger()
}
