package scheduler

import "expvar"

// Operation counters, published on /debug/vars.
var (
	slotsCreated      = expvar.NewInt("slots_created")
	meetingsScheduled = expvar.NewInt("meetings_scheduled")
	meetingsCancelled = expvar.NewInt("meetings_cancelled")
)
