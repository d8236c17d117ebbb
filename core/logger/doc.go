// Package logger builds the zap logger shared by the keymatch commands and
// the match server.
//
// Level and encoding come from the `log` config section. The debug level
// selects zap's development preset. Any other valid level selects the
// production preset at that level.
//
// Requests served by `keymatch serve` carry a ray id. WithRayID copies it
// from the fiber locals onto a child logger, so the match log lines of one
// request can be found together.
//
//	log, _ := logger.New(&cfg.Log)
//	l := logger.WithRayID(log, c)
//	l.Error("Match failed", zap.String("relation", name), zap.Error(err))
package logger
