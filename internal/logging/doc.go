// Package logging provides structured logging using uber/zap.
//
// Production loggers write JSON, development loggers write colored console
// lines. Both write to stderr by default. Components receive the embedded
// *zap.Logger and name themselves:
//
//	logger := logging.NewDefault()
//	defer logger.Close()
//	mgr := updater.NewManager(updater.Options{Logger: logger.Logger})
package logging
