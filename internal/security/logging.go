package security

import (
	"github.com/peepybureau/bpi/internal/logger"
)

// GetLogger returns a logger scoped to the security module.
func GetLogger() logger.Logger {
	return logger.Global().Module("security")
}
