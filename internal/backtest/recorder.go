package backtest

// Recorder persists run lifecycles. The sqlite store implements it; tests
// substitute an in-memory fake.
type Recorder interface {
	InsertRun(run Run) error
	FinishRun(run Run, result *Result) error
	MarkFailed(runID string, reason string) error
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) InsertRun(Run) error          { return nil }
func (NopRecorder) FinishRun(Run, *Result) error { return nil }
func (NopRecorder) MarkFailed(string, string) error {
	return nil
}
