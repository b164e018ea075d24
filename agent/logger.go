package agent

import (
	"io"
	"log"
)

var logger *log.Logger

// SetLogger overrides the logger output for this package.
func SetLogger(w io.Writer) {
	flags := log.Flags()
	prefix := "[agent] "
	logger = log.New(w, prefix, flags)
}

func init() {
	SetLogger(io.Discard)
}
