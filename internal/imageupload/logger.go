package imageupload

import "github.com/peepybureau/bpi/internal/logger"

// GetLogger returns the imageupload module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("imageupload")
}
