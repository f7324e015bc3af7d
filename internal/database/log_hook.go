package database

import (
	"context"

	"github.com/rs/zerolog"
)

// LogHook feeds zerolog events into system_logs, making the table a
// queryable secondary sink of the structured log stream rather than a
// separately-maintained logging path.
type LogHook struct {
	repo      *LogRepository
	component string
}

// NewLogHook constructs a LogHook bound to a single component name.
func NewLogHook(repo *LogRepository, component string) LogHook {
	return LogHook{repo: repo, component: component}
}

// Run implements zerolog.Hook.
func (h LogHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.InfoLevel {
		return // keep the audit table to info-and-above, debug stays log-stream-only
	}
	h.repo.Write(context.Background(), level.String(), h.component, msg, "")
}
