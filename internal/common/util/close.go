package util

import (
	"io"

	"github.com/armadaproject/ttbench/internal/common/logging"
)

// CloseResource closes c and logs, rather than returns, any failure.
func CloseResource(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logging.WithError(err).Warnf("Failed to close %s cleanly", name)
	}
}
