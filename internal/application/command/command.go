// Package command contains write operations (CQRS - Commands).
package command

// Recorder receives counters for the operational metrics. The metrics
// package provides the real implementation; NopRecorder keeps handlers
// usable without one.
type Recorder interface {
	SessionStarted()
	SessionEnded(seconds int64)
	SessionsSwept(count int64)
}

// NopRecorder is a Recorder that discards everything.
type NopRecorder struct{}

func (NopRecorder) SessionStarted()            {}
func (NopRecorder) SessionEnded(seconds int64) {}
func (NopRecorder) SessionsSwept(count int64)  {}
