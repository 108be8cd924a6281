package logger

import "sync/atomic"

// Backend receives every log call. Implementations live in subpackages,
// see console.
type Backend interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

var backends atomic.Pointer[[]Backend]

// Init replaces the active backends. Without a call to Init, or after
// Init(), logging is a no-op, so library packages stay quiet in tests.
func Init(b ...Backend) {
	backends.Store(&b)
}

func each(fn func(Backend)) {
	active := backends.Load()
	if active == nil {
		return
	}
	for _, b := range *active {
		fn(b)
	}
}

func Log(message string, keyvals ...any) {
	each(func(b Backend) { b.Log(message, keyvals...) })
}

func Info(message string, keyvals ...any) {
	each(func(b Backend) { b.Info(message, keyvals...) })
}

func Warn(message string, keyvals ...any) {
	each(func(b Backend) { b.Warn(message, keyvals...) })
}

func Error(message string, keyvals ...any) {
	each(func(b Backend) { b.Error(message, keyvals...) })
}

func Debug(message string, keyvals ...any) {
	each(func(b Backend) { b.Debug(message, keyvals...) })
}

// Fatal logs on every backend. The first backend that exits ends the
// process.
func Fatal(message string, keyvals ...any) {
	each(func(b Backend) { b.Fatal(message, keyvals...) })
}
