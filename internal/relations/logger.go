package relations

import "github.com/peepybureau/bpi/internal/logger"

// GetLogger returns the relations module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("relations")
}
