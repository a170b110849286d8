package logger

// the central logger instance, used by packages that have no more specific
// logger threaded through to them
var central = NewLogger(256)

// Log adds an entry to the central logger.
func Log(perm Permission, tag string, detail any) {
	central.Log(perm, tag, detail)
}

// Logf adds a formatted entry to the central logger.
func Logf(perm Permission, tag string, format string, args ...any) {
	central.Logf(perm, tag, format, args...)
}

// Central returns the central logger, for callers that need Write/Tail.
func Central() *Logger {
	return central
}
