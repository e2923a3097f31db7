// Package log builds the zap loggers used by the command line tools.
//
// Library packages take a *zap.Logger from their caller and never build one
// themselves. Tests use zaptest.NewLogger.
package log
