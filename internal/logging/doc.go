// Package logging builds the process slog.Logger: a JSON handler for log
// shippers or a tint console handler for terminals, both behind a LevelVar
// so the level can change on config reload.
package logging
