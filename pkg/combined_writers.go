package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter tees log output to several sinks, e.g. stdout and the
// rotated log file. A failing sink does not stop the others.
type CombinedWriter struct {
	writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{writers: writers}
}

// Write reports len(p) when at least one sink took the whole of p, and
// the combined errors of the sinks that did not.
func (cw *CombinedWriter) Write(p []byte) (int, error) {
	var (
		delivered bool
		errs      error
	)
	for _, w := range cw.writers {
		n, err := w.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		delivered = true
	}
	if !delivered {
		return 0, errs
	}
	return len(p), errs
}
