package state

// Reader provides read-only access to the working data of a test run
type Reader interface {
	// GetInitialData returns a copy of the data the run was seeded with
	GetInitialData() map[string]any

	// GetStepOutputs returns a copy of all recorded step outputs, by step id
	GetStepOutputs() map[string]map[string]any

	// GetStepOutput returns a copy of one step's recorded output
	GetStepOutput(stepID string) (map[string]any, bool)
}
