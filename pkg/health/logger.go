package health

// Logger receives health and status entries.
type Logger interface {
	// Log records an entry. Implementations must be safe for concurrent use
	// and should return quickly.
	Log(entry Entry)
}

// NoopLogger discards all entries.
type NoopLogger struct{}

// Log discards the entry.
func (NoopLogger) Log(Entry) {}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(Entry)

// Log calls f(entry).
func (f LoggerFunc) Log(entry Entry) { f(entry) }

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
