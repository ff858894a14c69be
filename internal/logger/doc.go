// Package logger wraps zap with a global sugared logger and context
// helpers. Services receive a context, pull the logger out of it and log
// through the convenience functions (Infof, ErrorKV, ...), which keeps
// command wiring free of logger plumbing.
package logger
