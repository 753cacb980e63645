package api

import "github.com/peepybureau/bpi/internal/logger"

// GetLogger returns the api module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}
