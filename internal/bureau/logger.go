package bureau

import "github.com/peepybureau/bpi/internal/logger"

// GetLogger returns the bureau module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("bureau")
}
