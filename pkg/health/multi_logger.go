package health

// MultiLogger sends entries to multiple loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger that sends entries to all non-nil
// loggers provided.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Log sends the entry to all configured loggers.
func (m *MultiLogger) Log(entry Entry) {
	for _, l := range m.loggers {
		l.Log(entry)
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
