package core

// Logger logs messages and reports them to the error tracker.
// args may contain errors, extra data maps and the user.User responsible for the event.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
