package app

import (
	"fmt"
	"io"

	"trucking-dispatch-core/internal/logx"
)

// NewLogger returns a JSON logger at the configured level, tagged with the service name.
func NewLogger(w io.Writer, level, service string) (logx.Logger, error) {
	lvl, err := logx.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return logx.NewJSON(w, lvl, service), nil
}
