package publishers

import "github.com/Adda-Baaj/khobor-reader/internal/logger"

// Logger is the logging surface publishers rely on.
type Logger = logger.Logger

type noopLogger = logger.NopLogger

func ensureLogger(log Logger) Logger {
	return logger.Ensure(log)
}
