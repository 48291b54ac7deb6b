package logger

type nopLogger struct{}

// NewNop returns a Logger that discards everything. Tests use it where log
// output is irrelevant.
func NewNop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}

func (n nopLogger) With(...Field) Logger { return n }

func (nopLogger) Sync() error  { return nil }
func (nopLogger) Close() error { return nil }
