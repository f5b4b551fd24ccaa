package logger

type nopLogger struct{}

// NewNop returns a Logger that discards every record. Its Fatal neither
// logs nor exits, so callers must not rely on Fatal to stop the process.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Fatal(string, ...any) {}
func (n nopLogger) With(...any) Logger { return n }
func (nopLogger) Level() Level         { return FatalLevel }
func (nopLogger) SetLevel(Level)       {}
