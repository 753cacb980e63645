package workspace

import "github.com/peepybureau/bpi/internal/logger"

// GetLogger returns the workspace module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("workspace")
}
