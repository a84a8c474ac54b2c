package processmap

import "time"

// StepType determines the shape of the synthetic output produced for a step
// when no mock applies.
type StepType string

const (
	StepTypeTrigger      StepType = "trigger"
	StepTypeStorage      StepType = "storage"
	StepTypeTransform    StepType = "transform"
	StepTypeExternalCall StepType = "external_call"
	StepTypeNotification StepType = "notification"
	StepTypeOther        StepType = "other"
)

// Operation is a side-effect class a step performs against its integration.
type Operation string

const (
	OperationRead  Operation = "read"
	OperationWrite Operation = "write"
)

// Schema describes the structure of a step's input or output. It is only
// used to produce validation findings and never to coerce data.
type Schema struct {
	Type       string             `json:"type,omitempty" yaml:"type,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required   []string           `json:"required,omitempty" yaml:"required,omitempty"`
}

// TestConfig holds the execution constraints of a step.
type TestConfig struct {
	// Timeout in milliseconds.
	Timeout    int         `json:"timeout" yaml:"timeout" validate:"gt=0"`
	Operations []Operation `json:"operations,omitempty" yaml:"operations,omitempty" validate:"dive,oneof=read write"`
}

// TimeoutDuration returns the step timeout as a time.Duration.
func (c TestConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// EffectiveOperations returns the configured operations, or [read] when none
// are configured.
func (c TestConfig) EffectiveOperations() []Operation {
	if len(c.Operations) == 0 {
		return []Operation{OperationRead}
	}
	return c.Operations
}

// Step represents a single node in a workflow's dependency graph.
type Step struct {
	ID           string     `json:"id" yaml:"id" validate:"required"`
	Name         string     `json:"name" yaml:"name" validate:"required"`
	Type         StepType   `json:"type" yaml:"type"`
	Dependencies []string   `json:"dependencies,omitempty" yaml:"dependencies,omitempty" validate:"unique"`
	Integration  string     `json:"integration,omitempty" yaml:"integration,omitempty"`
	InputSchema  *Schema    `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
	OutputSchema *Schema    `json:"output_schema,omitempty" yaml:"output_schema,omitempty"`
	TestConfig   TestConfig `json:"test_config" yaml:"test_config"`
}

// IsReadOnly returns true if every operation of the step is a read.
func (s *Step) IsReadOnly() bool {
	for _, op := range s.TestConfig.EffectiveOperations() {
		if op != OperationRead {
			return false
		}
	}
	return true
}
