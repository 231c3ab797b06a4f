/*
DESCRIPTION
  globallog.go provides a "safe" global logger via the singleton
  pattern, grounded on cmd/vidforward/global's logger.go in the
  teacher. Usage should be avoided if possible; it exists for code that
  cannot take a logger parameter. clipfleetd installs it at startup; no
  package in this module calls Get.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package globallog holds the one safety-valve singleton logger this
// module permits, for call sites that have no way to take a
// logging.Logger parameter.
package globallog

import "github.com/ausocean/utils/logging"

var logger *globalLogger = nil

type globalLogger struct {
	logging.Logger
}

// Set installs the process-wide logger. It must be called exactly once
// before Get, typically from main during startup; a second call is
// reported through the existing logger's Fatal.
func Set(l logging.Logger) {
	if logger != nil {
		logger.Fatal("globallog: attempting to set an already-instantiated global logger")
	}
	logger = &globalLogger{l}
}

// Get returns the process-wide logger. It panics if Set has not yet
// been called.
func Get() logging.Logger {
	if logger == nil {
		panic("globallog: attempted get of uninstantiated global logger")
	}
	return logger.Logger
}
