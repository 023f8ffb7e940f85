// Package logger provides structured logging for imgfetch on top of zerolog.
//
// Log events go to stderr (and optionally a file). Standard output carries
// only the human-readable outcome lines printed by the ui package.
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("url", u).Debug("probing")
//
// Tests use NewNopLogger or NewTestLogger to silence or capture events.
package logger
