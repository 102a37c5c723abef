package events

// RefreshStarted is published when the Refresh Coordinator begins a run.
type RefreshStarted struct {
	BuildOnly bool
}

// RefreshCompleted is published when a run exits, whether it succeeded or
// failed.
type RefreshCompleted struct {
	Succeeded    bool
	ErrorSummary string
}
